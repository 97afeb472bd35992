package tracker

import (
	"context"
	"time"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
)

// ProjectService resolves projects for the tracker.
type ProjectService interface {
	Get(ctx context.Context, ref project.Ref, asOf *time.Time) (*project.Project, error)
}

// TimeblockService reads and appends time blocks for the tracker.
type TimeblockService interface {
	Upsert(ctx context.Context, req timeblock.UpsertRequest) (*timeblock.Timeblock, error)
	Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error)
}
