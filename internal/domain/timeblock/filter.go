package timeblock

import (
	"time"

	"github.com/rpggio/tt/internal/domain/project"
)

// Filter is a predicate over visible time block versions.
//
// This is a sealed interface: only the node types below implement it, and the
// storage layer compiles it with an exhaustive type switch.
//
// Node types:
//   - RefFilter: the block addressed by a Ref
//   - ProjectFilter: blocks of a project (nil Ref matches every project)
//   - AndFilter / OrFilter: binary conjunction / disjunction
//   - OpenFilter: open (no end) or closed blocks
//   - TagFilter: blocks carrying an exact tag
//   - AtTimeFilter: the as-of bound of the whole search
//
// Every search sees, per entity, only the latest version written at or before
// its as-of bound. The bound comes from an AtTimeFilter reachable from the root
// through And nodes only; see AsOf. An AtTimeFilter anywhere else places no
// restriction. A tree without a bound is evaluated as of now.
type Filter interface {
	timeblockFilter()
}

type RefFilter struct {
	Ref Ref
}

type ProjectFilter struct {
	Ref project.Ref
}

type AndFilter struct {
	Left, Right Filter
}

type OrFilter struct {
	Left, Right Filter
}

type OpenFilter struct {
	Open bool
}

type TagFilter struct {
	Tag string
}

type AtTimeFilter struct {
	Time time.Time
}

func (RefFilter) timeblockFilter()     {}
func (ProjectFilter) timeblockFilter() {}
func (AndFilter) timeblockFilter()     {}
func (OrFilter) timeblockFilter()      {}
func (OpenFilter) timeblockFilter()    {}
func (TagFilter) timeblockFilter()     {}
func (AtTimeFilter) timeblockFilter()  {}

// MatchRef matches the block r addresses.
func MatchRef(r Ref) Filter { return RefFilter{Ref: r} }

// MatchProject matches blocks of p; a nil p matches all blocks.
func MatchProject(p project.Ref) Filter { return ProjectFilter{Ref: p} }

// And matches when both a and b match.
func And(a, b Filter) Filter { return AndFilter{Left: a, Right: b} }

// Or matches when a or b matches.
func Or(a, b Filter) Filter { return OrFilter{Left: a, Right: b} }

// Open matches open blocks when open is true and closed blocks otherwise.
func Open(open bool) Filter { return OpenFilter{Open: open} }

// Tag matches blocks whose tag list contains tag.
func Tag(tag string) Filter { return TagFilter{Tag: tag} }

// AtTime sets the as-of bound of a search to t.
func AtTime(t time.Time) Filter { return AtTimeFilter{Time: t} }

// AsOf returns the as-of bound of f: the earliest AtTime reachable from the
// root through And nodes. ok is false when f has no such node.
func AsOf(f Filter) (t time.Time, ok bool) {
	switch n := f.(type) {
	case AtTimeFilter:
		return n.Time, true
	case AndFilter:
		lt, lok := AsOf(n.Left)
		rt, rok := AsOf(n.Right)
		switch {
		case lok && rok:
			if rt.Before(lt) {
				return rt, true
			}
			return lt, true
		case lok:
			return lt, true
		default:
			return rt, rok
		}
	default:
		return time.Time{}, false
	}
}
