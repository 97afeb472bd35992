package entity

import (
	"fmt"
	"time"
)

// ID is the durable identity of a logical entity. It is allocated once and
// shared by every version of that entity.
type ID int64

// Kind distinguishes the entity families that share the identity table.
type Kind string

const (
	KindProject   Kind = "project"
	KindTimeblock Kind = "timeblock"
)

// Version identifies one immutable snapshot of one entity.
type Version struct {
	EntityID    ID        `json:"entity_id"`
	VersionID   int64     `json:"version_id"`
	VersionTime time.Time `json:"version_time"`
}

// First returns version 0 of a freshly allocated entity.
func First(id ID, now time.Time) Version {
	return Version{EntityID: id, VersionID: 0, VersionTime: now.UTC()}
}

// Next returns the version that follows current. The version time never moves
// backwards, even if the wall clock does.
func Next(current Version, now time.Time) Version {
	vtime := now.UTC()
	if vtime.Before(current.VersionTime) {
		vtime = current.VersionTime
	}
	return Version{
		EntityID:    current.EntityID,
		VersionID:   current.VersionID + 1,
		VersionTime: vtime,
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d@%d", v.EntityID, v.VersionID)
}

// EndOfTime is an as-of bound later than any version time the ledger writes.
// Reading as of EndOfTime returns the latest version ever written.
var EndOfTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
