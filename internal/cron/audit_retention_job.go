package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

type auditLogRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// AuditRetentionJobParams configure the audit log retention sweep.
type AuditRetentionJobParams struct {
	Logger     *logger.Logger
	Repository auditLogRepo
	Retention  config.RetentionConfig
}

// NewAuditRetentionJob trims audit rows past the retention window.
func NewAuditRetentionJob(params AuditRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Retention.AuditLogAge <= 0 {
		return nil, fmt.Errorf("audit log age must be positive")
	}
	batchSize := params.Retention.PurgeBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &auditRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		age:       params.Retention.AuditLogAge,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type auditRetentionJob struct {
	logg      *logger.Logger
	repo      auditLogRepo
	age       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *auditRetentionJob) Name() string { return "audit-retention" }

func (j *auditRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)

	var total int64
	for {
		deleted, err := j.repo.DeleteOlderThan(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("audit retention: %w", err)
		}
		total += deleted
		if deleted < int64(j.batchSize) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "audit retention complete")
	return nil
}
