package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/http/metrics"
	"github.com/Dest1on/jobboard/internal/http/middleware"
	"github.com/Dest1on/jobboard/internal/http/response"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 4 << 20

type ApplicationHandler struct {
	applications *app.ApplicationService
	metrics      *metrics.Collector
}

func NewApplicationHandler(applications *app.ApplicationService, collector *metrics.Collector) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, metrics: collector}
}

type resumePayload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// submitRequest is the JSON form of a submission; the resume travels as
// base64. "job" and "jobId" are both accepted.
type submitRequest struct {
	Job     string         `json:"job"`
	JobID   string         `json:"jobId"`
	UserID  string         `json:"userId"`
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Message string         `json:"message"`
	Resume  *resumePayload `json:"resume"`
}

type statusRequest struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	req, err := readSubmission(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := requireSelf(principal, req.UserID, "userId"); err != nil {
		response.Error(w, err)
		return
	}
	jobID := req.JobID
	if jobID == "" {
		jobID = req.Job
	}
	input := app.SubmitInput{
		JobID:       jobID,
		ApplicantID: principal.ID,
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
	}
	if req.Resume != nil {
		input.Resume = &app.Resume{Filename: req.Resume.Filename, Data: req.Resume.Data}
	}
	created, err := h.applications.Submit(r.Context(), input)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.metrics.ApplicationSubmitted()
	response.JSON(w, http.StatusCreated, map[string]any{"message": "Application submitted", "application": created})
}

func readSubmission(r *http.Request) (*submitRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req submitRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge(err)
		}
		return nil, common.NewValidationError("invalid multipart body", map[string]string{"body": err.Error()})
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := &submitRequest{
		Job:     r.FormValue("job"),
		JobID:   r.FormValue("jobId"),
		UserID:  r.FormValue("userId"),
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Message: r.FormValue("message"),
	}
	file, header, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, common.NewValidationError("invalid resume", map[string]string{"resume": err.Error()})
	}
	defer file.Close()
	// one byte past the limit is enough for the policy check to reject it
	data, err := io.ReadAll(io.LimitReader(file, app.MaxResumeSize+1))
	if err != nil {
		return nil, common.NewUploadError(http.StatusBadRequest, "could not read resume", err)
	}
	req.Resume = &resumePayload{Filename: header.Filename, Data: data}
	return req, nil
}

// List serves GET /applications. ?id= returns one application, ?postedBy=me
// the caller's inbox as a job owner, and otherwise the caller's own
// applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	query := r.URL.Query()
	if id := query.Get("id"); id != "" {
		found, err := h.applications.Get(r.Context(), principal, id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, found)
		return
	}
	filter := app.ListFilter{Status: query.Get("status"), JobID: query.Get("jobId")}
	if postedBy := strings.TrimSpace(query.Get("postedBy")); postedBy != "" {
		if err := requireSelf(principal, postedBy, "postedBy"); err != nil {
			response.Error(w, err)
			return
		}
		h.listOwned(w, r, filter)
		return
	}
	if err := requireSelf(principal, query.Get("userId"), "userId"); err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.applications.ListForApplicant(r.Context(), principal, filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

// ListOwned serves GET /admin/applications.
func (h *ApplicationHandler) ListOwned(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h.listOwned(w, r, app.ListFilter{Status: query.Get("status"), JobID: query.Get("jobId")})
}

func (h *ApplicationHandler) listOwned(w http.ResponseWriter, r *http.Request, filter app.ListFilter) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	items, err := h.applications.ListForOwner(r.Context(), principal, filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r)
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.ApplicationID) == "" {
		fields["applicationId"] = "applicationId is required"
	}
	if strings.TrimSpace(req.Status) == "" {
		fields["status"] = "status is required"
	}
	if len(fields) > 0 {
		response.Error(w, common.NewValidationError("invalid status update", fields))
		return
	}
	updated, err := h.applications.SetStatus(r.Context(), principal, req.ApplicationID, req.Status)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.metrics.StatusChanged(string(updated.Status))
	response.JSON(w, http.StatusOK, map[string]any{"message": "Status updated", "application": updated})
}
