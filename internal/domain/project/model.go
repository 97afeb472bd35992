package project

import (
	"github.com/google/uuid"
	"github.com/rpggio/tt/internal/domain/entity"
)

// LocalExternalIDPrefix marks projects created locally rather than imported.
const LocalExternalIDPrefix = "local:"

// NewLocalExternalID returns a fresh external id for a locally created project.
func NewLocalExternalID() string {
	return LocalExternalIDPrefix + uuid.NewString()
}

// Project is one version of a node in the project hierarchy
type Project struct {
	ExternalID     string         `json:"external_id"`
	Name           string         `json:"name"`
	ParentEntityID *entity.ID     `json:"parent_entity_id,omitempty"`
	Alive          bool           `json:"alive"`
	Version        entity.Version `json:"version"`
}

// EntityID is shorthand for p.Version.EntityID.
func (p *Project) EntityID() entity.ID {
	return p.Version.EntityID
}

// Ref addresses a project by any stable handle, or carries one the caller
// already holds. The set of variants is closed: ByVersion, ByEntityID,
// ByExternalID and Materialized.
type Ref interface {
	projectRef()
}

// ByVersion addresses the entity a version handle belongs to.
type ByVersion entity.Version

// ByEntityID addresses a project by its durable identity.
type ByEntityID entity.ID

// ByExternalID addresses a project by the id a remote system assigned it.
type ByExternalID string

// Materialized carries an already loaded project; resolving it runs no query.
type Materialized struct {
	Project Project
}

func (ByVersion) projectRef()    {}
func (ByEntityID) projectRef()   {}
func (ByExternalID) projectRef() {}
func (Materialized) projectRef() {}

// RefOf wraps p so it can be handed back to the store without a lookup.
func RefOf(p *Project) Ref {
	return Materialized{Project: *p}
}

// UpsertRequest defines project upsert inputs.
type UpsertRequest struct {
	Name           string
	ExternalID     string
	ParentEntityID *entity.ID
}
