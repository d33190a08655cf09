package snapshot_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"listingparity/internal/snapshot"
)

func TestDegradedPlaceholders(t *testing.T) {
	s := snapshot.Degraded(snapshot.SourcePIM)
	assert.Equal(t, snapshot.SourcePIM, s.Source)
	assert.Equal(t, "NOT FOUND", s.Title)
	assert.Empty(t, s.Bullets)
	assert.NotNil(t, s.Bullets)
	assert.Equal(t, "ERROR", s.Status)
	assert.True(t, s.Degraded)
}

func TestResultSettle(t *testing.T) {
	good := snapshot.OK(snapshot.ProductSnapshot{Source: snapshot.SourceMarketplace, Title: "Kettle"})
	assert.Equal(t, "Kettle", good.Settle(snapshot.SourceMarketplace).Title)

	bad := snapshot.Failed(snapshot.SourceMarketplace, errors.New("timeout"))
	settled := bad.Settle(snapshot.SourceMarketplace)
	assert.True(t, settled.Degraded)
	assert.Equal(t, snapshot.NotFound, settled.Title)
}

func TestCloneIsDeep(t *testing.T) {
	orig := snapshot.ProductSnapshot{Bullets: []string{"a"}, Videos: snapshot.Videos{Durations: []string{"1:00"}}}
	cp := orig.Clone()
	cp.Bullets[0] = "b"
	cp.Videos.Durations[0] = "2:00"
	assert.Equal(t, "a", orig.Bullets[0])
	assert.Equal(t, "1:00", orig.Videos.Durations[0])
}
