package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tt is a personal time-tracking ledger: hierarchical projects and time blocks.

Concepts:
- Project: a node in a tree, addressed by its fully qualified name (FQN), e.g. "Acme/Design".
  A slash inside a name is written "\/".
- Time block: an interval of work on one project. It is open while it has no end.
- Every change appends a version; nothing is overwritten. as_of arguments read the ledger at a past time.

Workflow:
1) Orient: call status for open work and list_projects for valid FQNs.
2) Track: punch_in(project) to start, punch_out(project) to stop. punch_out without a project
   only works while exactly one block is open.
3) Review: search_timeblocks by project, open state, tag or as_of; project_history for renames and moves.

Docs:
- tt://docs/index
- tt://docs/versioning
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tt://docs/index",
		Name:        "docs_index",
		Title:       "tt docs index",
		Description: "Entry point: the tools, what they return and their errors.",
		Content: `# tt: Agent Docs Index

## Tools

- list_projects(as_of?) -> live projects with entity_id and fqn
- create_project(name, parent?) -> the new project
- delete_project(project) -> the tombstone version
- project_history(project) -> every version, oldest first, each with the fqn it had then
- punch_in(project) -> the new open time block
- punch_out(project?) -> the closed time block
- status() -> open blocks with elapsed HH:MM:SS
- search_timeblocks(project?, open?, tag?, as_of?) -> matching blocks
- sync() -> counts of imported Teamwork projects, tasks and entries
- recent_activity(type?, limit?) -> sync runs, backups and exports, newest first

## Error codes

- PROJECT_NOT_FOUND: no live project has that FQN.
- ALREADY_PUNCHED_IN: the project already has an open block.
- NOT_PUNCHED_IN: nothing to punch out of.
- AMBIGUOUS_TIMEBLOCK: several blocks are open; name the project.
- PARENT_CYCLE: the move would make a project its own ancestor.
- SYNC_NOT_CONFIGURED: Teamwork credentials are not set.
- INVALID_ARGUMENT / INVALID_INPUT: fix the argument and retry.
`,
	},
	{
		URI:         "tt://docs/versioning",
		Name:        "docs_versioning",
		Title:       "How tt versions entities",
		Description: "Identity, versions and as-of reads.",
		Content: `# Versioning

- Each project and time block has a stable entity_id shared by all of its versions.
- A write never changes a row. It appends version_id = previous + 1 with version_time = now.
- Deleting appends a version with alive = false.
- Reading as_of T returns, per entity, the newest version whose version_time <= T.
- An FQN read as_of T resolves every ancestor at T too, so renames show up only after they happened.
- Imported Teamwork entries carry an external_id and are always closed.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
