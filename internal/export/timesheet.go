// Package export renders time blocks as an Excel timesheet.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/rpggio/tt/internal/domain/timeblock"
	"github.com/xuri/excelize/v2"
)

const (
	// TimesheetSheet lists one row per block.
	TimesheetSheet = "Timesheet"
	// SummarySheet totals hours per project.
	SummarySheet = "Summary"

	cellTimeLayout = "2006-01-02 15:04"
)

var (
	timesheetHeader = []any{"Project", "Start", "End", "Hours", "Billable", "Notes", "Tags"}
	summaryHeader   = []any{"Project", "Hours", "Billable Hours"}
)

// TimeblockSearcher finds the blocks to export.
type TimeblockSearcher interface {
	Search(ctx context.Context, filter timeblock.Filter) ([]timeblock.Timeblock, error)
}

// ProjectNamer maps project entity ids to fully qualified names.
type ProjectNamer interface {
	FQNs(ctx context.Context, asOf *time.Time) (map[entity.ID]string, error)
}

// Exporter writes timesheet workbooks.
type Exporter struct {
	timeblocks TimeblockSearcher
	projects   ProjectNamer
	logger     *slog.Logger
	now        func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(timeblocks TimeblockSearcher, projects ProjectNamer, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{timeblocks: timeblocks, projects: projects, logger: logger, now: time.Now}
}

type row struct {
	project string
	block   timeblock.Timeblock
	hours   float64
}

// Write renders the live blocks matching filter to w and returns the number of
// rows written. Open blocks are counted up to now and have an empty End cell.
func (e *Exporter) Write(ctx context.Context, w io.Writer, filter timeblock.Filter) (int, error) {
	blocks, err := e.timeblocks.Search(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	names, err := e.projects.FQNs(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	now := e.now().UTC()
	rows := make([]row, 0, len(blocks))
	for _, tb := range blocks {
		if !tb.Alive {
			continue
		}
		name, ok := names[tb.ProjectEntityID]
		if !ok {
			name = fmt.Sprintf("#%d", tb.ProjectEntityID)
		}
		rows = append(rows, row{project: name, block: tb, hours: hours(tb.Elapsed(now))})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].block.Start.Before(rows[j].block.Start)
	})

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeTimesheet(f, rows); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := writeSummary(f, rows); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("export: write workbook: %w", err)
	}

	e.logger.Info("timesheet exported", "rows", len(rows))
	return len(rows), nil
}

func writeTimesheet(f *excelize.File, rows []row) error {
	if err := f.SetSheetName("Sheet1", TimesheetSheet); err != nil {
		return err
	}
	if err := setHeader(f, TimesheetSheet, timesheetHeader); err != nil {
		return err
	}
	for i, r := range rows {
		end := ""
		if r.block.End != nil {
			end = r.block.End.UTC().Format(cellTimeLayout)
		}
		values := []any{
			r.project,
			r.block.Start.UTC().Format(cellTimeLayout),
			end,
			r.hours,
			yesNo(r.block.Billable),
			r.block.Notes,
			strings.Join(r.block.Tags, ", "),
		}
		if err := setRow(f, TimesheetSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, rows []row) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	if err := setHeader(f, SummarySheet, summaryHeader); err != nil {
		return err
	}

	type total struct{ hours, billable float64 }
	totals := map[string]*total{}
	var projects []string
	for _, r := range rows {
		t, ok := totals[r.project]
		if !ok {
			t = &total{}
			totals[r.project] = t
			projects = append(projects, r.project)
		}
		t.hours += r.hours
		if r.block.Billable {
			t.billable += r.hours
		}
	}
	sort.Strings(projects)

	for i, name := range projects {
		t := totals[name]
		if err := setRow(f, SummarySheet, i+2, []any{name, round(t.hours), round(t.billable)}); err != nil {
			return err
		}
	}
	return nil
}

func setHeader(f *excelize.File, sheet string, header []any) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func hours(d time.Duration) float64 {
	return round(d.Hours())
}

func round(h float64) float64 {
	return math.Round(h*100) / 100
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
