package entity_test

import (
	"testing"
	"time"

	"github.com/rpggio/tt/internal/domain/entity"
	"github.com/stretchr/testify/require"
)

func TestNext_IncrementsVersion(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	v0 := entity.First(7, t0)
	require.Equal(t, entity.ID(7), v0.EntityID)
	require.Equal(t, int64(0), v0.VersionID)

	v1 := entity.Next(v0, t0.Add(time.Minute))
	require.Equal(t, entity.ID(7), v1.EntityID)
	require.Equal(t, int64(1), v1.VersionID)
	require.Equal(t, t0.Add(time.Minute), v1.VersionTime)
}

func TestNext_ClampsClockSkew(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	v1 := entity.Next(entity.First(1, t0), t0.Add(-time.Hour))
	require.Equal(t, t0, v1.VersionTime)
}

func TestFirst_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	v := entity.First(1, time.Date(2024, 3, 1, 11, 0, 0, 0, loc))
	require.Equal(t, time.UTC, v.VersionTime.Location())
	require.Equal(t, 9, v.VersionTime.Hour())
}

func TestVersion_String(t *testing.T) {
	require.Equal(t, "3@2", entity.Version{EntityID: 3, VersionID: 2}.String())
}
