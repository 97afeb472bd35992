package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// Services contains all domain services needed by MCP.
type Services struct {
	Projects   ProjectService
	Timeblocks TimeblockService
	Tracker    TrackerService
	Syncer     Syncer
	Activity   ActivityService
}

// Config contains server configuration.
type Config struct {
	Services Services
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tt",
		Version: Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	s := cfg.Services
	registerTools(server, NewHandler(s.Projects, s.Timeblocks, s.Tracker, s.Syncer, s.Activity))

	return server
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List live projects with their fully qualified names",
	}, h.ListProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a local project, optionally under a parent project",
	}, h.CreateProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_project",
		Description: "Mark a project as deleted; its history is kept",
	}, h.DeleteProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "project_history",
		Description: "List every version of a project, oldest first",
	}, h.ProjectHistory)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "punch_in",
		Description: "Start a time block on a project",
	}, h.PunchIn)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "punch_out",
		Description: "Close the open time block of a project, or the only open block",
	}, h.PunchOut)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "status",
		Description: "List open time blocks with elapsed time",
	}, h.Status)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_timeblocks",
		Description: "Find time blocks by project, open state, tag and point in time",
	}, h.SearchTimeblocks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sync",
		Description: "Import projects, tasks and time entries from Teamwork",
	}, h.Sync)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent sync runs, backups and exports, newest first",
	}, h.RecentActivity)
}
