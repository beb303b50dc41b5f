package handlers

import (
	"net/http"
	"strings"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/domain/job"
	"github.com/Dest1on/jobboard/internal/http/middleware"
	"github.com/Dest1on/jobboard/internal/http/response"
)

type JobHandler struct {
	jobs *app.JobService
}

func NewJobHandler(jobs *app.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type jobRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	PostedBy    string `json:"postedBy"`
}

type transferOwnerRequest struct {
	JobID    string `json:"jobId"`
	PostedBy string `json:"postedBy"`
}

// List serves GET /jobs, or a single job when ?id= is given.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if id := query.Get("id"); id != "" {
		found, err := h.jobs.Get(r.Context(), id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, found)
		return
	}
	filter := job.Filter{
		Query:    query.Get("q"),
		Location: query.Get("location"),
		Company:  query.Get("company"),
		PostedBy: query.Get("postedBy"),
	}
	if strings.TrimSpace(filter.PostedBy) == "me" {
		principal, ok := middleware.PrincipalFromContext(r)
		if !ok {
			response.Error(w, errUnauthorized())
			return
		}
		filter.PostedBy = principal.ID
	}
	result, err := h.jobs.List(r.Context(), filter, job.Page{
		Skip:  queryInt(r, "skip", 0),
		Limit: queryInt(r, "limit", job.DefaultPageSize),
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := requireSelf(principal, req.PostedBy, "postedBy"); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.jobs.Create(r.Context(), principal, app.CreateJobInput{
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *JobHandler) TransferOwner(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req transferOwnerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.jobs.TransferOwnership(r.Context(), principal, req.JobID, req.PostedBy)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"message": "Job owner updated", "job": updated})
}
