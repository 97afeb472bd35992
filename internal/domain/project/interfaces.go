package project

import (
	"context"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
)

// Repository provides append-only persistence for project versions.
type Repository interface {
	Allocate(ctx context.Context) (entity.ID, error)
	Insert(ctx context.Context, proj *Project) error
	GetByEntityID(ctx context.Context, id entity.ID, asOf time.Time) (*Project, error)
	GetByExternalID(ctx context.Context, externalID string, asOf time.Time) (*Project, error)
	List(ctx context.Context, asOf time.Time) ([]Project, error)
	History(ctx context.Context, id entity.ID) ([]Project, error)
}
