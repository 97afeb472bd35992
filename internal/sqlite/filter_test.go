package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// renderCompiled formats a compiled filter for golden comparison.
func renderCompiled(where string, params []any) []byte {
	var b strings.Builder
	b.WriteString(where)
	b.WriteString("\n")
	for i, p := range params {
		fmt.Fprintf(&b, "%d: %#v\n", i+1, p)
	}
	return []byte(b.String())
}

func TestCompileFilter_Golden(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter timeblock.Filter
	}{
		{
			name: "nested_params",
			filter: timeblock.And(
				timeblock.Or(timeblock.MatchRef(timeblock.ByEntityID(1)), timeblock.MatchRef(timeblock.ByExternalID("entry:2"))),
				timeblock.MatchProject(project.ByEntityID(3)),
			),
		},
		{
			name:   "tag_closed_as_of",
			filter: timeblock.And(timeblock.And(timeblock.Tag("billing"), timeblock.Open(false)), timeblock.AtTime(asOf)),
		},
		{
			name:   "any_project",
			filter: timeblock.MatchProject(nil),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			where, params, err := CompileFilter(tc.filter)
			require.NoError(t, err)
			g.Assert(t, tc.name, renderCompiled(where, params))
		})
	}
}

func TestCompileFilter_InvalidReference(t *testing.T) {
	_, _, err := CompileFilter(timeblock.MatchRef(nil))
	require.ErrorIs(t, err, timeblock.ErrInvalidReference)

	_, _, err = CompileFilter(timeblock.And(timeblock.Open(true), timeblock.MatchRef(nil)))
	require.ErrorIs(t, err, timeblock.ErrInvalidReference)
}

func TestCompileFilter_InvalidTag(t *testing.T) {
	for _, tag := range []string{"", "a\nb", "\n"} {
		_, _, err := CompileFilter(timeblock.Or(timeblock.Open(true), timeblock.Tag(tag)))
		require.ErrorIs(t, err, timeblock.ErrInvalidInput, "tag %q", tag)
	}
}

var errCaptured = errors.New("captured")

// capturingQueryer records the statement instead of running it.
type capturingQueryer struct {
	query string
	args  []any
}

func (c *capturingQueryer) QueryContext(_ context.Context, query string, args ...any) (*sql.Rows, error) {
	c.query = query
	c.args = args
	return nil, errCaptured
}

// nestedRefs builds an unbalanced And/Or tree over refs 1..n, alternating the
// side that recurses, so parameter order depends on traversal order.
func nestedRefs(lo, hi int64, depth int) timeblock.Filter {
	if lo == hi {
		return timeblock.MatchRef(timeblock.ByEntityID(entity.ID(lo)))
	}
	mid := lo + (hi-lo)/2
	if depth%2 == 0 {
		return timeblock.Or(nestedRefs(lo, mid, depth+1), nestedRefs(mid+1, hi, depth+1))
	}
	return timeblock.And(nestedRefs(lo, mid, depth+1), nestedRefs(mid+1, hi, depth+1))
}

func TestSearch_ParameterAlignment(t *testing.T) {
	fake := &capturingQueryer{}
	repo := &TimeblockRepository{q: fake}
	latest := formatTime(entity.EndOfTime)
	asOf := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter timeblock.Filter
		want   []any
	}{
		{
			name: "and of or",
			filter: timeblock.And(
				timeblock.Or(timeblock.MatchRef(timeblock.ByEntityID(1)), timeblock.MatchRef(timeblock.ByEntityID(2))),
				timeblock.MatchProject(project.ByEntityID(3)),
			),
			want: []any{latest, int64(1), int64(2), int64(3)},
		},
		{
			name:   "deep nesting",
			filter: nestedRefs(1, 9, 0),
			want:   []any{latest, int64(1), int64(2), int64(3), int64(4), int64(5), int64(6), int64(7), int64(8), int64(9)},
		},
		{
			name: "parameterless nodes in between",
			filter: timeblock.Or(
				timeblock.And(timeblock.Open(true), timeblock.Tag("a")),
				timeblock.And(timeblock.MatchProject(nil), timeblock.MatchRef(timeblock.ByExternalID("b"))),
			),
			want: []any{latest, "\na\n", "b"},
		},
		{
			name: "bound leads regardless of position",
			filter: timeblock.And(
				timeblock.MatchRef(timeblock.ByEntityID(1)),
				timeblock.And(timeblock.AtTime(asOf), timeblock.Tag("a")),
			),
			want: []any{"2024-03-01T09:00:00.000000000Z", int64(1), "\na\n"},
		},
		{
			name:   "nested bound is not the search bound",
			filter: timeblock.Or(timeblock.Open(true), timeblock.AtTime(asOf)),
			want:   []any{latest},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Search(context.Background(), tc.filter)
			require.ErrorIs(t, err, errCaptured)
			require.Equal(t, strings.Count(fake.query, "?"), len(fake.args), "placeholder count")
			require.Equal(t, tc.want, fake.args)
		})
	}
}
