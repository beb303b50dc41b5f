package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/domain/application"
	"github.com/Dest1on/jobboard/internal/domain/job"
	"github.com/Dest1on/jobboard/internal/events"
	"github.com/Dest1on/jobboard/internal/storage"
)

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[common.UUID]job.Job
	seq  int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[common.UUID]job.Job)}
}

func (r *fakeJobRepo) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	j.ID = common.NewUUID()
	j.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.seq) * time.Minute)
	r.jobs[j.ID] = j
	return &j, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "job not found", nil)
	}
	return &j, nil
}

func (r *fakeJobRepo) GetByIDs(ctx context.Context, ids []common.UUID) ([]job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []job.Job{}
	for _, id := range ids {
		if j, ok := r.jobs[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter job.Filter, page job.Page) ([]job.Job, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []job.Job{}
	q := strings.ToLower(filter.Query)
	for _, j := range r.jobs {
		if filter.Location != "" && j.Location != filter.Location {
			continue
		}
		if filter.Company != "" && j.Company != filter.Company {
			continue
		}
		if filter.PostedBy != "" && j.PostedBy != filter.PostedBy {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(j.Title+"\n"+j.Description+"\n"+j.Company+"\n"+j.Location), q) {
			continue
		}
		matched = append(matched, j)
	}
	sort.Slice(matched, func(a, b int) bool { return matched[a].CreatedAt.After(matched[b].CreatedAt) })
	total := len(matched)
	if page.Skip >= total {
		return []job.Job{}, total, nil
	}
	end := page.Skip + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Skip:end], total, nil
}

func (r *fakeJobRepo) ListIDsByOwner(ctx context.Context, postedBy string) ([]common.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []common.UUID{}
	for id, j := range r.jobs {
		if j.PostedBy == postedBy {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeJobRepo) UpdateOwner(ctx context.Context, id common.UUID, postedBy string) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "job not found", nil)
	}
	j.PostedBy = postedBy
	r.jobs[id] = j
	return &j, nil
}

type fakeApplicationRepo struct {
	mu        sync.Mutex
	apps      map[common.UUID]application.Application
	updates   int
	createErr error
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{apps: make(map[common.UUID]application.Application)}
}

func (r *fakeApplicationRepo) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.apps {
		if existing.JobID == app.JobID && existing.ApplicantID == app.ApplicantID {
			return nil, common.NewError(common.CodeDuplicateApplication, "already applied to this job", nil)
		}
	}
	app.ID = common.NewUUID()
	app.CreatedAt = time.Now().UTC()
	app.UpdatedAt = app.CreatedAt
	r.apps[app.ID] = app
	return &app, nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	return &app, nil
}

func (r *fakeApplicationRepo) FindByJobAndApplicant(ctx context.Context, jobID common.UUID, applicantID string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.JobID == jobID && app.ApplicantID == applicantID {
			found := app
			return &found, nil
		}
	}
	return nil, common.NewError(common.CodeApplicationNotFound, "application not found", nil)
}

func (r *fakeApplicationRepo) Find(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []application.Application{}
	for _, app := range r.apps {
		if filter.JobID != "" && app.JobID != filter.JobID {
			continue
		}
		if filter.JobIDs != nil && !containsID(filter.JobIDs, app.JobID) {
			continue
		}
		if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, id common.UUID, status application.Status) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	r.updates++
	app.Status = status
	app.UpdatedAt = time.Now().UTC()
	r.apps[id] = app
	return &app, nil
}

func (r *fakeApplicationRepo) ResumeReferenced(ctx context.Context, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.ResumeURL == url {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeApplicationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

type fakeSink struct {
	mu        sync.Mutex
	objects   map[string]storage.StoredObject
	uploads   int
	uploadErr error
	onUpload  func(ctx context.Context) error
	deleted   []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{objects: make(map[string]storage.StoredObject)}
}

func (s *fakeSink) Upload(ctx context.Context, obj storage.Object) (string, error) {
	if s.onUpload != nil {
		if err := s.onUpload(ctx); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	url := "https://blobs.test/" + obj.Key
	s.objects[url] = storage.StoredObject{Key: obj.Key, URL: url, CreatedAt: time.Now()}
	return url, nil
}

func (s *fakeSink) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	delete(s.objects, url)
	return nil
}

func (s *fakeSink) List(ctx context.Context) ([]storage.StoredObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.StoredObject, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj)
	}
	return out, nil
}

func (s *fakeSink) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []events.ApplicationEvent
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, event events.ApplicationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (a *fakeAnalytics) Create(ctx context.Context, event analytics.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

var errStoreDown = errors.New("store unavailable")
