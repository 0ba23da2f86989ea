package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

// SoftDeletedPurger hard-deletes soft-deleted rows older than a cutoff.
type SoftDeletedPurger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// RecordPurgeJobParams configure the soft-deleted record purge across
// the workflow record types.
type RecordPurgeJobParams struct {
	Logger    *logger.Logger
	Purgers   map[string]SoftDeletedPurger
	Retention config.RetentionConfig
}

// NewRecordPurgeJob hard-deletes workflow records that were soft-deleted
// longer ago than the retention window.
func NewRecordPurgeJob(params RecordPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(params.Purgers) == 0 {
		return nil, fmt.Errorf("at least one purger required")
	}
	if params.Retention.SoftDeletedAge <= 0 {
		return nil, fmt.Errorf("soft deleted age must be positive")
	}
	batchSize := params.Retention.PurgeBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &recordPurgeJob{
		logg:      params.Logger,
		purgers:   params.Purgers,
		age:       params.Retention.SoftDeletedAge,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type recordPurgeJob struct {
	logg      *logger.Logger
	purgers   map[string]SoftDeletedPurger
	age       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *recordPurgeJob) Name() string { return "soft-deleted-record-purge" }

func (j *recordPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)

	totals := make(map[string]any, len(j.purgers))
	var errs []error
	for name, purger := range j.purgers {
		var total int64
		for {
			deleted, err := purger.PurgeDeletedBefore(ctx, cutoff, j.batchSize)
			if err != nil {
				errs = append(errs, fmt.Errorf("purge %s: %w", name, err))
				break
			}
			total += deleted
			if deleted < int64(j.batchSize) {
				break
			}
		}
		totals[name] = total
	}

	logCtx := j.logg.WithFields(ctx, totals)
	logCtx = j.logg.WithField(logCtx, "cutoff", cutoff)
	j.logg.Info(logCtx, "soft-deleted record purge complete")
	return multierr.Combine(errs...)
}
