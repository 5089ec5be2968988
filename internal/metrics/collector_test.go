package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatGB(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0 GB"},
		{0.04, "0.0 GB"},
		{1.25, "1.2 GB"},
		{12.96, "13.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatGB(tt.in))
	}
}

func TestCollectorSample(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	assert.Equal(t, 30*time.Second, c.interval)
	assert.Nil(t, c.Last())

	s := c.Sample()
	require.NotNil(t, s)
	assert.Greater(t, s.Goroutines, 0)
	assert.Greater(t, s.HeapAllocGB, 0.0)
	assert.Same(t, s, c.Last())
}
