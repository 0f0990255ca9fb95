package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ChunksProcessed.WithLabelValues("ok").Inc()
	c.ChunkBytesIn.Add(100)
	c.StoredRawTotal.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families, "expected at least one registered metric family")

	var found bool
	for _, f := range families {
		if f.GetName() == "hlc_pipeline_chunks_processed_total" {
			found = true
			assert.Len(t, f.Metric, 1)
		}
	}
	assert.True(t, found, "hlc_pipeline_chunks_processed_total not found among registered families")
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, float64(0), CompressionRatio(0, 100))
	assert.Equal(t, 0.5, CompressionRatio(100, 50))
}
