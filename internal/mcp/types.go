package mcp

import (
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
)

// MCP tool parameter and response types.
// Times cross the wire as RFC 3339 strings.

type ListProjectsParams struct {
	AsOf string `json:"as_of,omitempty" jsonschema:"RFC 3339 time to read the hierarchy at; defaults to now"`
}

type CreateProjectParams struct {
	Name   string `json:"name" jsonschema:"project name; may contain slashes"`
	Parent string `json:"parent,omitempty" jsonschema:"fully qualified name of the parent project"`
}

type ProjectParams struct {
	Project string `json:"project" jsonschema:"fully qualified project name, e.g. Acme/Design"`
}

type PunchOutParams struct {
	Project string `json:"project,omitempty" jsonschema:"fully qualified project name; required when several projects are open"`
}

type StatusParams struct{}

type SearchTimeblocksParams struct {
	Project string `json:"project,omitempty" jsonschema:"fully qualified project name"`
	Open    *bool  `json:"open,omitempty" jsonschema:"true for open blocks only, false for closed only"`
	Tag     string `json:"tag,omitempty" jsonschema:"exact tag the block must carry"`
	AsOf    string `json:"as_of,omitempty" jsonschema:"RFC 3339 time to read the ledger at; defaults to now"`
}

type SyncParams struct{}

type RecentActivityParams struct {
	Type  string `json:"type,omitempty" jsonschema:"only entries of this type, e.g. sync_failed"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of entries; defaults to 50"`
}

type ProjectResponse struct {
	EntityID       int64  `json:"entity_id"`
	VersionID      int64  `json:"version_id"`
	VersionTime    string `json:"version_time"`
	FQN            string `json:"fqn,omitempty"`
	Name           string `json:"name"`
	ExternalID     string `json:"external_id"`
	ParentEntityID *int64 `json:"parent_entity_id,omitempty"`
	Alive          bool   `json:"alive"`
}

type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ProjectHistoryResponse struct {
	Versions []ProjectResponse `json:"versions"`
}

type TimeblockResponse struct {
	EntityID    int64    `json:"entity_id"`
	VersionID   int64    `json:"version_id"`
	VersionTime string   `json:"version_time"`
	Project     string   `json:"project"`
	ExternalID  string   `json:"external_id,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	Billable    bool     `json:"billable"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags"`
	Alive       bool     `json:"alive"`
}

type SearchTimeblocksResponse struct {
	Timeblocks []TimeblockResponse `json:"timeblocks"`
}

type OpenEntryResponse struct {
	Project        string `json:"project"`
	TimeblockID    int64  `json:"timeblock_id"`
	Start          string `json:"start"`
	Elapsed        string `json:"elapsed"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

type StatusResponse struct {
	At   string              `json:"at"`
	Open []OpenEntryResponse `json:"open"`
}

type SyncResponse struct {
	RunID    string `json:"run_id"`
	Projects int    `json:"projects"`
	Tasks    int    `json:"tasks"`
	Entries  int    `json:"entries"`
	Skipped  int    `json:"skipped"`
}

type ActivityResponse struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RecentActivityResponse struct {
	Entries []ActivityResponse `json:"entries"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toProjectResponse(p *project.Project, fqn string) ProjectResponse {
	resp := ProjectResponse{
		EntityID:    int64(p.EntityID()),
		VersionID:   p.Version.VersionID,
		VersionTime: formatTime(p.Version.VersionTime),
		FQN:         fqn,
		Name:        p.Name,
		ExternalID:  p.ExternalID,
		Alive:       p.Alive,
	}
	if p.ParentEntityID != nil {
		parent := int64(*p.ParentEntityID)
		resp.ParentEntityID = &parent
	}
	return resp
}

func toTimeblockResponse(tb *timeblock.Timeblock, names map[entity.ID]string) TimeblockResponse {
	resp := TimeblockResponse{
		EntityID:    int64(tb.EntityID()),
		VersionID:   tb.Version.VersionID,
		VersionTime: formatTime(tb.Version.VersionTime),
		Project:     names[tb.ProjectEntityID],
		Start:       formatTime(tb.Start),
		Billable:    tb.Billable,
		Notes:       tb.Notes,
		Tags:        tb.Tags,
		Alive:       tb.Alive,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if tb.ExternalID != nil {
		resp.ExternalID = *tb.ExternalID
	}
	if tb.End != nil {
		resp.End = formatTime(*tb.End)
	}
	return resp
}
