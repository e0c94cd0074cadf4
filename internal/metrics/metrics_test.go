package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestActiveSessionsReportsTrackedCount(t *testing.T) {
	n := 3
	TrackSessions(func() int { return n })
	assert.Equal(t, float64(3), testutil.ToFloat64(ActiveSessions))

	n = 1
	assert.Equal(t, float64(1), testutil.ToFloat64(ActiveSessions))
}
