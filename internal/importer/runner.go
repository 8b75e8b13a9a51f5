// Package importer runs asynchronous bulk imports of study groups from
// uploaded YAML files, staging the raw upload in blob storage and tracking
// each attempt as an ImportJob.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"

	"campuscore/internal/blob"
	"campuscore/internal/core"
	"campuscore/pkg/domain"
)

// Outcomes reports terminal job statuses, typically to a metrics sink.
type Outcomes interface {
	ImportFinished(status string)
}

type noopOutcomes struct{}

func (noopOutcomes) ImportFinished(string) {}

// Upload carries one submitted import file.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Runner processes import uploads asynchronously, one at a time.
type Runner struct {
	service  *core.Service
	blobs    blob.Store
	logger   core.Logger
	outcomes Outcomes

	queue chan task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	jobID     string
	stagedKey string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a structured logger.
func WithLogger(logger core.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutcomes attaches a sink for terminal job statuses.
func WithOutcomes(outcomes Outcomes) Option {
	return func(r *Runner) {
		if outcomes != nil {
			r.outcomes = outcomes
		}
	}
}

// NewRunner constructs an import runner over the given service and blob
// store.
func NewRunner(service *core.Service, blobs blob.Store, opts ...Option) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		service:  service,
		blobs:    blobs,
		logger:   core.NopLogger(),
		outcomes: noopOutcomes{},
		queue:    make(chan task, 32),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins processing queued imports.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop signals the runner to halt and waits for the in-flight job.
func (r *Runner) Stop(ctx context.Context) error {
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case t := <-r.queue:
			r.process(t)
		}
	}
}

// Submit stages the upload, records an IN_PROGRESS job, and queues it for
// processing. The returned job reflects the queued state.
func (r *Runner) Submit(ctx context.Context, upload Upload) (domain.ImportJob, error) {
	if len(upload.Content) == 0 {
		return domain.ImportJob{}, &domain.ImportValidationError{Index: -1, Message: "uploaded file is empty"}
	}
	jobID := uuid.NewString()
	stagedKey := path.Join("imports", "tmp", jobID, upload.Filename)
	if _, err := r.blobs.Put(ctx, stagedKey, bytes.NewReader(upload.Content), blob.PutOptions{
		ContentType: upload.ContentType,
	}); err != nil {
		return domain.ImportJob{}, &domain.StorageUnavailableError{Err: err}
	}
	job, err := r.service.CreateImportJob(ctx, domain.ImportJob{
		ID:          jobID,
		EntityType:  domain.EntityStudyGroup,
		Status:      domain.ImportInProgress,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		FileSize:    int64(len(upload.Content)),
		StorageKey:  stagedKey,
	})
	if err != nil {
		if _, delErr := r.blobs.Delete(ctx, stagedKey); delErr != nil {
			r.logger.Warn("orphaned staged import blob", "key", stagedKey, "error", delErr)
		}
		return domain.ImportJob{}, err
	}
	select {
	case r.queue <- task{jobID: jobID, stagedKey: stagedKey}:
	case <-r.ctx.Done():
		r.fail(job.ID, stagedKey, fmt.Errorf("import runner stopped"))
		return r.service.GetImportJob(ctx, jobID)
	}
	r.logger.Info("import submitted", "job", jobID, "filename", upload.Filename, "bytes", len(upload.Content))
	return job, nil
}

func (r *Runner) process(t task) {
	ctx := r.ctx
	_, body, err := r.blobs.Get(ctx, t.stagedKey)
	if err != nil {
		r.fail(t.jobID, t.stagedKey, &domain.StorageUnavailableError{Err: err})
		return
	}
	content, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		r.fail(t.jobID, t.stagedKey, &domain.StorageUnavailableError{Err: err})
		return
	}
	inputs, err := parseStudyGroups(bytes.NewReader(content))
	if err != nil {
		r.fail(t.jobID, t.stagedKey, err)
		return
	}
	created, err := r.service.CreateStudyGroupsBulk(ctx, inputs)
	if err != nil {
		r.fail(t.jobID, t.stagedKey, err)
		return
	}
	r.complete(t, content, len(inputs), len(created))
}

// complete promotes the staged blob to its permanent key and marks the job
// COMPLETED. Promotion problems do not undo the committed rows; the job
// keeps the staged key instead.
func (r *Runner) complete(t task, content []byte, total, success int) {
	ctx := r.ctx
	job, err := r.service.GetImportJob(ctx, t.jobID)
	if err != nil {
		r.logger.Error("import job vanished before completion", "job", t.jobID, "error", err)
		return
	}
	finalKey := path.Join("imports", t.jobID, job.Filename)
	storageKey := t.stagedKey
	downloadURL := ""
	info, err := r.blobs.Put(ctx, finalKey, bytes.NewReader(content), blob.PutOptions{ContentType: job.ContentType})
	if err == nil {
		storageKey = finalKey
		downloadURL = info.URL
		if _, err := r.blobs.Delete(ctx, t.stagedKey); err != nil {
			r.logger.Warn("staged import blob not removed", "key", t.stagedKey, "error", err)
		}
	} else {
		r.logger.Warn("import blob promotion failed, keeping staged key", "job", t.jobID, "error", err)
	}
	_, err = r.service.UpdateImportJob(ctx, t.jobID, func(j *domain.ImportJob) error {
		j.Status = domain.ImportCompleted
		j.TotalRecords = &total
		j.SuccessCount = &success
		j.StorageKey = storageKey
		j.DownloadURL = downloadURL
		return nil
	})
	if err != nil {
		r.logger.Error("import job completion not recorded", "job", t.jobID, "error", err)
		return
	}
	r.outcomes.ImportFinished(string(domain.ImportCompleted))
	r.logger.Info("import completed", "job", t.jobID, "records", success)
}

// fail marks the job FAILED with the cause and removes the staged blob.
func (r *Runner) fail(jobID, stagedKey string, cause error) {
	ctx := r.ctx
	if _, err := r.blobs.Delete(ctx, stagedKey); err != nil {
		r.logger.Warn("staged import blob not removed", "key", stagedKey, "error", err)
	}
	_, err := r.service.UpdateImportJob(ctx, jobID, func(j *domain.ImportJob) error {
		j.Status = domain.ImportFailed
		j.ErrorMessage = cause.Error()
		j.StorageKey = ""
		return nil
	})
	if err != nil {
		r.logger.Error("import job failure not recorded", "job", jobID, "error", err)
		return
	}
	r.outcomes.ImportFinished(string(domain.ImportFailed))
	r.logger.Warn("import failed", "job", jobID, "error", cause)
}

// History returns all import jobs, most recent first.
func (r *Runner) History(ctx context.Context) ([]domain.ImportJob, error) {
	return r.service.ListImportJobs(ctx)
}

// Job returns one import job by id.
func (r *Runner) Job(ctx context.Context, id string) (domain.ImportJob, error) {
	return r.service.GetImportJob(ctx, id)
}

// File streams the stored upload for a job.
func (r *Runner) File(ctx context.Context, jobID string) (domain.ImportJob, io.ReadCloser, error) {
	job, err := r.service.GetImportJob(ctx, jobID)
	if err != nil {
		return domain.ImportJob{}, nil, err
	}
	if job.StorageKey == "" {
		return domain.ImportJob{}, nil, domain.NewNotFound(domain.EntityImportJob, jobID)
	}
	_, body, err := r.blobs.Get(ctx, job.StorageKey)
	if err != nil {
		return domain.ImportJob{}, nil, &domain.StorageUnavailableError{Err: err}
	}
	return job, body, nil
}
