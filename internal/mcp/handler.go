package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tt/internal/domain/activity"
	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/domain/tracker"
	"github.com/rpggio/tt/internal/teamwork"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Upsert(ctx context.Context, req project.UpsertRequest) (*project.Project, error)
	Delete(ctx context.Context, ref project.Ref) (*project.Project, error)
	List(ctx context.Context, asOf *time.Time) ([]project.Project, error)
	History(ctx context.Context, ref project.Ref) ([]project.Project, error)
	FQN(ctx context.Context, ref project.Ref, asOf *time.Time) (string, error)
	FQNs(ctx context.Context, asOf *time.Time) (map[entity.ID]string, error)
	FindByFQN(ctx context.Context, fqn string, asOf *time.Time) (*project.Project, error)
}

// TimeblockService defines time block queries needed by MCP.
type TimeblockService interface {
	Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error)
}

// TrackerService defines punch operations needed by MCP.
type TrackerService interface {
	PunchIn(ctx context.Context, ref project.Ref) (*timeblock.Timeblock, error)
	PunchOut(ctx context.Context, ref project.Ref) (*timeblock.Timeblock, error)
	Status(ctx context.Context) (*tracker.Status, error)
}

// Syncer pulls remote state into the ledger.
type Syncer interface {
	Sync(ctx context.Context) (*teamwork.Result, error)
}

// ActivityService records and lists operations that run beside the ledger.
type ActivityService interface {
	LogResult(ctx context.Context, okType, failType activity.Type, summary string, details any, err error)
	Recent(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// Handler implements the MCP tools on top of the domain services.
type Handler struct {
	projects   ProjectService
	timeblocks TimeblockService
	tracker    TrackerService
	syncer     Syncer
	activity   ActivityService
}

// NewHandler creates a new MCP handler. syncer and activityLog may be nil.
func NewHandler(projects ProjectService, timeblocks TimeblockService, trackerSvc TrackerService, syncer Syncer, activityLog ActivityService) *Handler {
	return &Handler{
		projects:   projects,
		timeblocks: timeblocks,
		tracker:    trackerSvc,
		syncer:     syncer,
		activity:   activityLog,
	}
}

func (h *Handler) ListProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListProjectsParams) (*sdkmcp.CallToolResult, ListProjectsResponse, error) {
	asOf, err := parseAsOf(in.AsOf)
	if err != nil {
		return nil, ListProjectsResponse{}, toolError(err)
	}
	projects, err := h.projects.List(ctx, asOf)
	if err != nil {
		return nil, ListProjectsResponse{}, toolError(err)
	}
	names, err := h.projects.FQNs(ctx, asOf)
	if err != nil {
		return nil, ListProjectsResponse{}, toolError(err)
	}

	resp := ListProjectsResponse{Projects: make([]ProjectResponse, 0, len(projects))}
	for i := range projects {
		if !projects[i].Alive {
			continue
		}
		resp.Projects = append(resp.Projects, toProjectResponse(&projects[i], names[projects[i].EntityID()]))
	}
	return nil, resp, nil
}

func (h *Handler) CreateProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateProjectParams) (*sdkmcp.CallToolResult, ProjectResponse, error) {
	req := project.UpsertRequest{
		Name:       strings.TrimSpace(in.Name),
		ExternalID: project.NewLocalExternalID(),
	}
	if in.Parent != "" {
		parent, err := h.projects.FindByFQN(ctx, in.Parent, nil)
		if err != nil {
			return nil, ProjectResponse{}, toolError(err)
		}
		id := parent.EntityID()
		req.ParentEntityID = &id
	}

	proj, err := h.projects.Upsert(ctx, req)
	if err != nil {
		return nil, ProjectResponse{}, toolError(err)
	}
	fqn, err := h.projects.FQN(ctx, project.RefOf(proj), nil)
	if err != nil {
		return nil, ProjectResponse{}, toolError(err)
	}
	return nil, toProjectResponse(proj, fqn), nil
}

func (h *Handler) DeleteProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectParams) (*sdkmcp.CallToolResult, ProjectResponse, error) {
	proj, err := h.projects.FindByFQN(ctx, in.Project, nil)
	if err != nil {
		return nil, ProjectResponse{}, toolError(err)
	}
	deleted, err := h.projects.Delete(ctx, project.RefOf(proj))
	if err != nil {
		return nil, ProjectResponse{}, toolError(err)
	}
	return nil, toProjectResponse(deleted, in.Project), nil
}

func (h *Handler) ProjectHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectParams) (*sdkmcp.CallToolResult, ProjectHistoryResponse, error) {
	proj, err := h.projects.FindByFQN(ctx, in.Project, nil)
	if err != nil {
		return nil, ProjectHistoryResponse{}, toolError(err)
	}
	versions, err := h.projects.History(ctx, project.RefOf(proj))
	if err != nil {
		return nil, ProjectHistoryResponse{}, toolError(err)
	}

	resp := ProjectHistoryResponse{Versions: make([]ProjectResponse, 0, len(versions))}
	for i := range versions {
		asOf := versions[i].Version.VersionTime
		fqn, err := h.projects.FQN(ctx, project.RefOf(&versions[i]), &asOf)
		if err != nil {
			return nil, ProjectHistoryResponse{}, toolError(err)
		}
		resp.Versions = append(resp.Versions, toProjectResponse(&versions[i], fqn))
	}
	return nil, resp, nil
}

func (h *Handler) PunchIn(ctx context.Context, _ *sdkmcp.CallToolRequest, in ProjectParams) (*sdkmcp.CallToolResult, TimeblockResponse, error) {
	proj, err := h.projects.FindByFQN(ctx, in.Project, nil)
	if err != nil {
		return nil, TimeblockResponse{}, toolError(err)
	}
	tb, err := h.tracker.PunchIn(ctx, project.RefOf(proj))
	if err != nil {
		return nil, TimeblockResponse{}, toolError(err)
	}
	return nil, toTimeblockResponse(tb, map[entity.ID]string{proj.EntityID(): in.Project}), nil
}

func (h *Handler) PunchOut(ctx context.Context, _ *sdkmcp.CallToolRequest, in PunchOutParams) (*sdkmcp.CallToolResult, TimeblockResponse, error) {
	var ref project.Ref
	if in.Project != "" {
		proj, err := h.projects.FindByFQN(ctx, in.Project, nil)
		if err != nil {
			return nil, TimeblockResponse{}, toolError(err)
		}
		ref = project.RefOf(proj)
	}
	tb, err := h.tracker.PunchOut(ctx, ref)
	if err != nil {
		return nil, TimeblockResponse{}, toolError(err)
	}
	names, err := h.projects.FQNs(ctx, nil)
	if err != nil {
		return nil, TimeblockResponse{}, toolError(err)
	}
	return nil, toTimeblockResponse(tb, names), nil
}

func (h *Handler) Status(ctx context.Context, _ *sdkmcp.CallToolRequest, _ StatusParams) (*sdkmcp.CallToolResult, StatusResponse, error) {
	status, err := h.tracker.Status(ctx)
	if err != nil {
		return nil, StatusResponse{}, toolError(err)
	}

	resp := StatusResponse{At: formatTime(status.At), Open: make([]OpenEntryResponse, 0, len(status.Open))}
	for _, entry := range status.Open {
		fqn, err := h.projects.FQN(ctx, project.RefOf(&entry.Project), nil)
		if err != nil {
			return nil, StatusResponse{}, toolError(err)
		}
		resp.Open = append(resp.Open, OpenEntryResponse{
			Project:        fqn,
			TimeblockID:    int64(entry.Timeblock.EntityID()),
			Start:          formatTime(entry.Timeblock.Start),
			Elapsed:        tracker.FormatElapsed(entry.Elapsed),
			ElapsedSeconds: int64(entry.Elapsed / time.Second),
		})
	}
	return nil, resp, nil
}

func (h *Handler) SearchTimeblocks(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchTimeblocksParams) (*sdkmcp.CallToolResult, SearchTimeblocksResponse, error) {
	asOf, err := parseAsOf(in.AsOf)
	if err != nil {
		return nil, SearchTimeblocksResponse{}, toolError(err)
	}

	var filter timeblock.Filter
	and := func(f timeblock.Filter) {
		if filter == nil {
			filter = f
			return
		}
		filter = timeblock.And(filter, f)
	}
	if in.Project != "" {
		proj, err := h.projects.FindByFQN(ctx, in.Project, asOf)
		if err != nil {
			return nil, SearchTimeblocksResponse{}, toolError(err)
		}
		and(timeblock.MatchProject(project.ByEntityID(proj.EntityID())))
	}
	if in.Open != nil {
		and(timeblock.Open(*in.Open))
	}
	if in.Tag != "" {
		and(timeblock.Tag(in.Tag))
	}
	if asOf != nil {
		and(timeblock.AtTime(*asOf))
	}

	blocks, err := h.timeblocks.Search(ctx, filter)
	if err != nil {
		return nil, SearchTimeblocksResponse{}, toolError(err)
	}
	names, err := h.projects.FQNs(ctx, asOf)
	if err != nil {
		return nil, SearchTimeblocksResponse{}, toolError(err)
	}

	resp := SearchTimeblocksResponse{Timeblocks: make([]TimeblockResponse, 0, len(blocks))}
	for i := range blocks {
		if !blocks[i].Alive {
			continue
		}
		resp.Timeblocks = append(resp.Timeblocks, toTimeblockResponse(&blocks[i], names))
	}
	return nil, resp, nil
}

func (h *Handler) Sync(ctx context.Context, _ *sdkmcp.CallToolRequest, _ SyncParams) (*sdkmcp.CallToolResult, SyncResponse, error) {
	if h.syncer == nil {
		return nil, SyncResponse{}, toolError(teamwork.ErrMissingCredentials)
	}
	res, err := h.syncer.Sync(ctx)
	if h.activity != nil {
		h.activity.LogResult(ctx, activity.TypeSyncCompleted, activity.TypeSyncFailed, "teamwork sync", res, err)
	}
	if err != nil {
		return nil, SyncResponse{}, toolError(err)
	}
	return nil, SyncResponse{
		RunID:    res.RunID,
		Projects: res.Projects,
		Tasks:    res.Tasks,
		Entries:  res.Entries,
		Skipped:  res.Skipped,
	}, nil
}

func (h *Handler) RecentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, RecentActivityResponse, error) {
	if h.activity == nil {
		return nil, RecentActivityResponse{Entries: []ActivityResponse{}}, nil
	}
	if in.Limit < 0 {
		return nil, RecentActivityResponse{}, toolError(fmt.Errorf("%w: limit must not be negative", errInvalidArgument))
	}
	opts := activity.ListOptions{Limit: in.Limit}
	if in.Type != "" {
		typ := activity.Type(in.Type)
		opts.Type = &typ
	}
	entries, err := h.activity.Recent(ctx, opts)
	if err != nil {
		return nil, RecentActivityResponse{}, toolError(err)
	}
	resp := RecentActivityResponse{Entries: make([]ActivityResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ActivityResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Summary:   e.Summary,
			Details:   e.Details,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return nil, resp, nil
}

func parseAsOf(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("%w: as_of %q is not an RFC 3339 time", errInvalidArgument, s)
	}
	return &t, nil
}
