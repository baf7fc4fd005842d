package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGopsutilTelemetry_Read(t *testing.T) {
	tel := NewGopsutilTelemetry("/")
	stats, err := tel.Read()
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.GreaterOrEqual(t, stats.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, stats.MemoryPercent, 0.0)
	assert.GreaterOrEqual(t, stats.DiskPercent, 0.0)
}

func TestNewGopsutilTelemetry_DefaultsDiskPath(t *testing.T) {
	tel := NewGopsutilTelemetry("")
	assert.Equal(t, "/", tel.diskPath)
}

func TestFakeTelemetry(t *testing.T) {
	fake := &FakeTelemetry{Stats: &HostStats{CPUPercent: 42}}
	stats, err := fake.Read()
	require.NoError(t, err)
	assert.Equal(t, 42.0, stats.CPUPercent)
}
