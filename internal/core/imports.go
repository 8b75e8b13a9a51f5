package core

import (
	"context"

	"campuscore/pkg/domain"
)

// CreateImportJob records a new import job. The caller supplies the id.
func (s *Service) CreateImportJob(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	var created domain.ImportJob
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateImportJob(job)
		return err
	})
	if err != nil {
		return domain.ImportJob{}, err
	}
	s.logger.Info("import job created", "id", created.ID, "filename", created.Filename)
	return created, nil
}

// UpdateImportJob mutates a job in place. Terminal jobs reject mutation at
// the store layer.
func (s *Service) UpdateImportJob(ctx context.Context, id string, mutator func(*domain.ImportJob) error) (domain.ImportJob, error) {
	var updated domain.ImportJob
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateImportJob(id, mutator)
		return err
	})
	return updated, err
}

// GetImportJob fetches a job by id.
func (s *Service) GetImportJob(ctx context.Context, id string) (domain.ImportJob, error) {
	var out domain.ImportJob
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		job, ok := view.FindImportJob(id)
		if !ok {
			return domain.NewNotFound(domain.EntityImportJob, id)
		}
		out = job
		return nil
	})
	return out, err
}

// ListImportJobs returns all jobs, most recent first.
func (s *Service) ListImportJobs(ctx context.Context) ([]domain.ImportJob, error) {
	var jobs []domain.ImportJob
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		jobs = view.ListImportJobs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	// The view orders ascending by creation time; history wants newest first.
	for i, j := 0, len(jobs)-1; i < j; i, j = i+1, j-1 {
		jobs[i], jobs[j] = jobs[j], jobs[i]
	}
	return jobs, nil
}
