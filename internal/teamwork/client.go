// Package teamwork imports projects, tasks and time entries from a Teamwork
// site into the local ledger.
package teamwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// updatedAfterLayout is the compact timestamp the Teamwork v1 API filters on.
const updatedAfterLayout = "20060102150405"

var (
	// ErrMissingCredentials indicates no base URL or API key was configured.
	ErrMissingCredentials = errors.New("teamwork base url and api key are required")
	// ErrUnexpectedStatus indicates a non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected teamwork response")
)

// RemoteProject is a Teamwork project.
type RemoteProject struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

// RemoteTask is a Teamwork todo item.
type RemoteTask struct {
	ID   flexString `json:"id"`
	Name string     `json:"content"`
}

// RemoteTag is a tag attached to a time entry.
type RemoteTag struct {
	Name string `json:"name"`
}

// RemoteTimeEntry is a logged interval of work.
type RemoteTimeEntry struct {
	ID          flexString  `json:"id"`
	ProjectID   flexString  `json:"project-id"`
	TaskID      flexString  `json:"todo-item-id"`
	Date        time.Time   `json:"date"`
	Hours       flexString  `json:"hours"`
	Minutes     flexString  `json:"minutes"`
	Description string      `json:"description"`
	Billable    flexString  `json:"isbillable"`
	Tags        []RemoteTag `json:"tags"`
}

// Duration is the logged hours plus minutes.
func (e RemoteTimeEntry) Duration() (time.Duration, error) {
	hours, err := e.Hours.Int()
	if err != nil {
		return 0, fmt.Errorf("time entry %s hours: %w", e.ID, err)
	}
	minutes, err := e.Minutes.Int()
	if err != nil {
		return 0, fmt.Errorf("time entry %s minutes: %w", e.ID, err)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// IsBillable reports the entry's billable flag.
func (e RemoteTimeEntry) IsBillable() bool {
	return e.Billable == "1" || strings.EqualFold(string(e.Billable), "true")
}

// flexString accepts a JSON string or number; the v1 API mixes both for ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// Int parses the value, treating empty as zero.
func (f flexString) Int() (int, error) {
	if f == "" {
		return 0, nil
	}
	return strconv.Atoi(string(f))
}

// Client calls the Teamwork v1 JSON API with basic auth.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient uses a client with
// a 30 second timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse teamwork base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: u, apiKey: apiKey, http: httpClient}, nil
}

// Projects lists every project visible to the API key.
func (c *Client) Projects(ctx context.Context) ([]RemoteProject, error) {
	var projects []RemoteProject
	err := c.getPages(ctx, "/projects.json", nil, func(body []byte) error {
		var page struct {
			Projects []RemoteProject `json:"projects"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		projects = append(projects, page.Projects...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list teamwork projects: %w", err)
	}
	return projects, nil
}

// Tasks lists the todo items of one project.
func (c *Client) Tasks(ctx context.Context, projectID string) ([]RemoteTask, error) {
	var tasks []RemoteTask
	path := "/projects/" + url.PathEscape(projectID) + "/tasks.json"
	err := c.getPages(ctx, path, nil, func(body []byte) error {
		var page struct {
			Tasks []RemoteTask `json:"todo-items"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		tasks = append(tasks, page.Tasks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list teamwork tasks of project %s: %w", projectID, err)
	}
	return tasks, nil
}

// TimeEntries lists time entries, restricted to those updated after since
// when it is non-nil.
func (c *Client) TimeEntries(ctx context.Context, since *time.Time) ([]RemoteTimeEntry, error) {
	query := url.Values{}
	if since != nil {
		query.Set("updatedAfterDate", since.UTC().Format(updatedAfterLayout))
	}

	var entries []RemoteTimeEntry
	err := c.getPages(ctx, "/time_entries.json", query, func(body []byte) error {
		var page struct {
			Entries []RemoteTimeEntry `json:"time-entries"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return err
		}
		entries = append(entries, page.Entries...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list teamwork time entries: %w", err)
	}
	return entries, nil
}

// getPages follows the X-Pages header, calling decode once per page.
func (c *Client) getPages(ctx context.Context, path string, query url.Values, decode func([]byte) error) error {
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))

		body, pages, err := c.get(ctx, path, q)
		if err != nil {
			return err
		}
		if err := decode(body); err != nil {
			return fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		if page >= pages {
			return nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.SetBasicAuth(c.apiKey, "xxx")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: GET %s: %s", ErrUnexpectedStatus, path, resp.Status)
	}

	pages := 1
	if h := resp.Header.Get("X-Pages"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			pages = n
		}
	}
	return body, pages, nil
}
