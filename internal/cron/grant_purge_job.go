package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

type expiredGrantRepo interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// GrantPurgeJobParams configure the expired-grant purge.
type GrantPurgeJobParams struct {
	Logger     *logger.Logger
	Repository expiredGrantRepo
	Retention  config.RetentionConfig
}

// NewGrantPurgeJob removes access requests whose grants expired long
// ago. Expiry itself never depends on this job; rows only become
// invisible to access checks the moment their expires_at passes.
func NewGrantPurgeJob(params GrantPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("access request repository required")
	}
	if params.Retention.ExpiredGrantAge <= 0 {
		return nil, fmt.Errorf("expired grant age must be positive")
	}
	batchSize := params.Retention.PurgeBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &grantPurgeJob{
		logg:      params.Logger,
		repo:      params.Repository,
		age:       params.Retention.ExpiredGrantAge,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type grantPurgeJob struct {
	logg      *logger.Logger
	repo      expiredGrantRepo
	age       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *grantPurgeJob) Name() string { return "expired-grant-purge" }

func (j *grantPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)

	var total int64
	for {
		deleted, err := j.repo.DeleteExpiredBefore(ctx, cutoff, j.batchSize)
		if err != nil {
			return fmt.Errorf("expired grant purge: %w", err)
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
	j.logg.Info(logCtx, "expired grant purge complete")
	return nil
}
