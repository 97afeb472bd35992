package timeblock

import (
	"context"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
)

// Repository provides append-only persistence for time block versions.
type Repository interface {
	Allocate(ctx context.Context) (entity.ID, error)
	Insert(ctx context.Context, tb *Timeblock) error
	GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*Timeblock, error)
	GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*Timeblock, error)
	History(ctx context.Context, id entity.ID) ([]Timeblock, error)
	Search(ctx context.Context, filter Filter) ([]Timeblock, error)
	LastVersionTime(ctx context.Context) (*time.Time, error)
}

// ProjectResolver resolves the project a block is attached to.
type ProjectResolver interface {
	Get(ctx context.Context, ref project.Ref, asOf *time.Time) (*project.Project, error)
}
