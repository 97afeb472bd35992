package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
)

// alwaysTrue is the fragment for a filter that places no restriction.
const alwaysTrue = "1 = 1"

// CompileFilter compiles a time block filter into a WHERE fragment over
// timeblock_version tb joined with project_version p.
//
// All values are parameterized, never interpolated. Parameters are returned in
// the order their placeholders appear in the fragment, so And/Or nodes simply
// concatenate left then right.
//
// An AtTime node compiles to no restriction: the as-of bound is applied once
// per search by the repository, never per node.
func CompileFilter(f timeblock.Filter) (string, []any, error) {
	if f == nil {
		return alwaysTrue, nil, nil
	}

	switch n := f.(type) {
	case timeblock.RefFilter:
		return compileTimeblockRef(n.Ref)
	case timeblock.ProjectFilter:
		return compileProjectRef(n.Ref)
	case timeblock.AndFilter:
		return compileBinary("AND", n.Left, n.Right)
	case timeblock.OrFilter:
		return compileBinary("OR", n.Left, n.Right)
	case timeblock.OpenFilter:
		if n.Open {
			return "tb.end_time IS NULL", nil, nil
		}
		return "tb.end_time IS NOT NULL", nil, nil
	case timeblock.TagFilter:
		if n.Tag == "" || strings.Contains(n.Tag, timeblock.TagSeparator) {
			return "", nil, fmt.Errorf("%w: tag %q", timeblock.ErrInvalidInput, n.Tag)
		}
		// Exact element match: the stored blob is wrapped in separators so the
		// first and last tag need no special case. instr is case-sensitive.
		return "instr(char(10) || tb.tags || char(10), ?) > 0",
			[]any{timeblock.TagSeparator + n.Tag + timeblock.TagSeparator}, nil
	case timeblock.AtTimeFilter:
		return alwaysTrue, nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func compileBinary(op string, left, right timeblock.Filter) (string, []any, error) {
	l, lp, err := CompileFilter(left)
	if err != nil {
		return "", nil, err
	}
	r, rp, err := CompileFilter(right)
	if err != nil {
		return "", nil, err
	}

	params := make([]any, 0, len(lp)+len(rp))
	params = append(params, lp...)
	params = append(params, rp...)
	return "(" + l + " " + op + " " + r + ")", params, nil
}

func compileTimeblockRef(ref timeblock.Ref) (string, []any, error) {
	switch r := ref.(type) {
	case timeblock.ByVersion:
		return "tb.entity_id = ?", []any{int64(r.EntityID)}, nil
	case timeblock.ByEntityID:
		return "tb.entity_id = ?", []any{int64(r)}, nil
	case timeblock.ByExternalID:
		return "tb.external_id = ?", []any{string(r)}, nil
	case timeblock.Materialized:
		return "tb.entity_id = ?", []any{int64(r.Timeblock.EntityID())}, nil
	default:
		return "", nil, fmt.Errorf("%w: %T", timeblock.ErrInvalidReference, ref)
	}
}

func compileProjectRef(ref project.Ref) (string, []any, error) {
	switch r := ref.(type) {
	case nil:
		return alwaysTrue, nil, nil
	case project.ByVersion:
		return "p.entity_id = ?", []any{int64(r.EntityID)}, nil
	case project.ByEntityID:
		return "p.entity_id = ?", []any{int64(r)}, nil
	case project.ByExternalID:
		return "p.external_id = ?", []any{string(r)}, nil
	case project.Materialized:
		return "p.entity_id = ?", []any{int64(r.Project.EntityID())}, nil
	default:
		return "", nil, fmt.Errorf("%w: %T", project.ErrInvalidReference, ref)
	}
}
