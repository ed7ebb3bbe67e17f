package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSpaces_DeduplicatesByID(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shared := Space{ID: "s1", Name: "Movie Night", OwnerID: "u1", CreatedAt: base}
	owned := []Space{shared, {ID: "s2", Name: "Horror Club", OwnerID: "u1", CreatedAt: base.Add(time.Hour)}}
	joined := []Space{shared, {ID: "s3", Name: "Friends", OwnerID: "u9", CreatedAt: base.Add(-time.Hour)}}

	got := MergeSpaces(owned, joined)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"s3", "s1", "s2"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestMergeSpaces_Empty(t *testing.T) {
	got := MergeSpaces(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSpaceIDs(t *testing.T) {
	ids := SpaceIDs([]Membership{{SpaceID: "a"}, {SpaceID: "b"}})
	assert.Equal(t, []string{"a", "b"}, ids)
}
