package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeSearcher struct {
	blocks []timeblock.Timeblock
	filter timeblock.Filter
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error) {
	f.filter = filter
	return f.blocks, f.err
}

type fakeNamer map[entity.ID]string

func (f fakeNamer) FQNs(context.Context, *time.Time) (map[entity.ID]string, error) {
	return f, nil
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestExporter_Write(t *testing.T) {
	searcher := &fakeSearcher{blocks: []timeblock.Timeblock{
		{ProjectEntityID: 2, Start: at(10, 0), End: ptr(at(10, 15)), Notes: "call", Tags: []string{"meeting"}, Alive: true},
		{ProjectEntityID: 1, Start: at(8, 0), End: ptr(at(9, 30)), Billable: true, Notes: "wireframes", Tags: []string{"design", "ux"}, Alive: true},
		{ProjectEntityID: 1, Start: at(7, 0), End: ptr(at(7, 30)), Tags: []string{"deleted"}, Alive: false},
		{ProjectEntityID: 2, Start: at(11, 0), Tags: []string{"live"}, Alive: true},
	}}
	names := fakeNamer{1: "Acme/Design", 2: "Acme"}

	e := NewExporter(searcher, names, nil)
	e.now = func() time.Time { return at(11, 45) }

	filter := timeblock.Open(false)
	var buf bytes.Buffer
	n, err := e.Write(context.Background(), &buf, filter)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, filter, searcher.filter)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{TimesheetSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(TimesheetSheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Project", "Start", "End", "Hours", "Billable", "Notes", "Tags"},
		{"Acme/Design", "2024-03-01 08:00", "2024-03-01 09:30", "1.5", "yes", "wireframes", "design, ux"},
		{"Acme", "2024-03-01 10:00", "2024-03-01 10:15", "0.25", "no", "call", "meeting"},
		{"Acme", "2024-03-01 11:00", "", "0.75", "no", "", "live"},
	}, rows)

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Project", "Hours", "Billable Hours"},
		{"Acme", "1", "0"},
		{"Acme/Design", "1.5", "1.5"},
	}, summary)
}

func TestExporter_WriteUnknownProject(t *testing.T) {
	searcher := &fakeSearcher{blocks: []timeblock.Timeblock{
		{ProjectEntityID: 9, Start: at(8, 0), End: ptr(at(9, 0)), Tags: []string{"x"}, Alive: true},
	}}
	var buf bytes.Buffer
	_, err := NewExporter(searcher, fakeNamer{}, nil).Write(context.Background(), &buf, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(TimesheetSheet, "A2")
	require.NoError(t, err)
	require.Equal(t, "#9", name)
}

func TestExporter_WriteSearchError(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	_, err := NewExporter(&fakeSearcher{err: boom}, fakeNamer{}, nil).Write(context.Background(), &buf, nil)
	require.ErrorIs(t, err, boom)
	require.Zero(t, buf.Len())
}
