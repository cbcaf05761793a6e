// internal/services/stats_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStatsCache(t *testing.T) {
	svc := &StatsService{
		cache:    make(map[string]statsCacheEntry),
		cacheTTL: 50 * time.Millisecond,
	}

	assert.Nil(t, svc.cachedStats("all"))

	snapshot := &ReportStats{Total: 12}
	svc.storeStats("all", snapshot)
	assert.Same(t, snapshot, svc.cachedStats("all"))

	// Scoped snapshots are keyed separately.
	assert.Nil(t, svc.cachedStats(primitive.NewObjectID().Hex()))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, svc.cachedStats("all"))
}
