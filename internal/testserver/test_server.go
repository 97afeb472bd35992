// Package testserver runs the full tt stack behind an httptest server.
package testserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/activity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/rpggio/tt/internal/domain/tracker"
	"github.com/rpggio/tt/internal/mcp"
	"github.com/rpggio/tt/internal/metrics"
	"github.com/rpggio/tt/internal/sqlite"
	"github.com/rpggio/tt/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Metrics *metrics.Metrics
	Token   string
}

// New starts a server over a fresh in-memory ledger. Requests to /mcp must
// carry token as a bearer token.
func New(t *testing.T, token string) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	m := metrics.New()
	projectSvc := project.NewService(sqlite.NewProjectRepository(db), nil, project.WithMetrics(m))
	timeblockSvc := timeblock.NewService(sqlite.NewTimeblockRepository(db), projectSvc, nil, timeblock.WithMetrics(m))
	trackerSvc := tracker.NewService(projectSvc, timeblockSvc, nil, tracker.WithMetrics(m))

	mcpServer := mcp.NewServer(mcp.Config{Services: mcp.Services{
		Projects:   projectSvc,
		Timeblocks: timeblockSvc,
		Tracker:    trackerSvc,
		Activity:   activity.NewService(sqlite.NewActivityRepository(db), nil),
	}})

	server := httptest.NewServer(transport.NewRouter(transport.RouterConfig{
		MCP:     mcp.NewHTTPHandler(mcpServer, time.Minute),
		Metrics: m.Handler(),
		Token:   token,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Metrics: m, Token: token}
}

// Client returns an HTTP client that sends the bearer token.
func (ts *TestServer) Client() *http.Client {
	return &http.Client{Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport}}
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}
