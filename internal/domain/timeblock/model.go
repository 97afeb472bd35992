package timeblock

import (
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
)

// TagSeparator joins tags in their stored form. Tags must not contain it.
const TagSeparator = "\n"

// Timeblock is one version of an interval of work on a project.
// A block with no End is open: work in progress.
type Timeblock struct {
	ExternalID      *string        `json:"external_id,omitempty"`
	ProjectEntityID entity.ID      `json:"project_entity_id"`
	Start           time.Time      `json:"start"`
	End             *time.Time     `json:"end,omitempty"`
	Billable        bool           `json:"billable"`
	Notes           string         `json:"notes"`
	Tags            []string       `json:"tags"`
	Alive           bool           `json:"alive"`
	Version         entity.Version `json:"version"`
}

// EntityID is shorthand for tb.Version.EntityID.
func (tb *Timeblock) EntityID() entity.ID {
	return tb.Version.EntityID
}

// IsOpen reports whether the block has no recorded end.
func (tb *Timeblock) IsOpen() bool {
	return tb.End == nil
}

// Elapsed is End-Start for closed blocks and now-Start for open ones.
func (tb *Timeblock) Elapsed(now time.Time) time.Duration {
	if tb.End != nil {
		return tb.End.Sub(tb.Start)
	}
	return now.Sub(tb.Start)
}

// ProjectRef addresses the block's project by entity id.
func (tb *Timeblock) ProjectRef() project.Ref {
	return project.ByEntityID(tb.ProjectEntityID)
}

// Ref addresses a time block. The variants mirror project.Ref: ByVersion,
// ByEntityID, ByExternalID and Materialized.
type Ref interface {
	timeblockRef()
}

// ByVersion addresses the entity a version handle belongs to.
type ByVersion entity.Version

// ByEntityID addresses a block by its durable identity.
type ByEntityID entity.ID

// ByExternalID addresses a block by the id a remote system assigned it.
type ByExternalID string

// Materialized carries an already loaded block; resolving it runs no query.
type Materialized struct {
	Timeblock Timeblock
}

func (ByVersion) timeblockRef()    {}
func (ByEntityID) timeblockRef()   {}
func (ByExternalID) timeblockRef() {}
func (Materialized) timeblockRef() {}

// RefOf wraps tb so it can be handed back to the store without a lookup.
func RefOf(tb *Timeblock) Ref {
	return Materialized{Timeblock: *tb}
}

// UpsertRequest describes a time block write. A nil Ref, or one that does not
// resolve, creates a new block.
type UpsertRequest struct {
	Ref        Ref
	ExternalID *string
	Project    project.Ref
	Start      time.Time
	End        *time.Time
	Billable   bool
	Notes      string
	Tags       []string
	Alive      bool
}
