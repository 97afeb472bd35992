package teamwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("", "key", nil)
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient("https://acme.teamwork.com", " ", nil)
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_ProjectsUsesBasicAuthAndPages(t *testing.T) {
	var pagesSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "secret", user)
		assert.Equal(t, "xxx", pass)
		assert.Equal(t, "/projects.json", r.URL.Path)

		page := r.URL.Query().Get("page")
		pagesSeen = append(pagesSeen, page)
		w.Header().Set("X-Pages", "2")
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case "1":
			w.Write([]byte(`{"STATUS":"OK","projects":[{"id":"101","name":"Acme"}]}`))
		default:
			w.Write([]byte(`{"STATUS":"OK","projects":[{"id":102,"name":"Globex"}]}`))
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "secret", srv.Client())
	require.NoError(t, err)

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, pagesSeen)
	require.Len(t, projects, 2)
	require.Equal(t, "101", projects[0].ID.String())
	require.Equal(t, "102", projects[1].ID.String())
	require.Equal(t, "Globex", projects[1].Name)
}

func TestClient_TasksAndEntries(t *testing.T) {
	since := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects/101/tasks.json":
			w.Write([]byte(`{"STATUS":"OK","todo-items":[{"id":501,"content":"Design"}]}`))
		case "/time_entries.json":
			assert.Equal(t, "20240301093000", r.URL.Query().Get("updatedAfterDate"))
			w.Write([]byte(`{"STATUS":"OK","time-entries":[{
				"id":"9001","project-id":"101","todo-item-id":"501",
				"date":"2024-03-01T08:00:00Z","hours":"1","minutes":"30",
				"description":"wireframes","isbillable":"1","tags":[{"name":"design"}]
			}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	tasks, err := c.Tasks(ctx, "101")
	require.NoError(t, err)
	require.Equal(t, []RemoteTask{{ID: "501", Name: "Design"}}, tasks)

	entries, err := c.TimeEntries(ctx, &since)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	dur, err := entries[0].Duration()
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, dur)
	require.True(t, entries[0].IsBillable())
	require.Equal(t, "501", entries[0].TaskID.String())

	_, err = c.Tasks(ctx, "999")
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}
