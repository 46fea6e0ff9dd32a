// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/pkg/types"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.GenerationStarted(types.KindPoster)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Active))

	c.FragmentReceived(types.KindPoster)
	c.FragmentReceived(types.KindPoster)
	c.GenerationFinished(types.KindPoster, generate.OutcomeOK, 2*time.Second)

	c.GenerationStarted(types.KindSlides)
	c.GenerationFinished(types.KindSlides, generate.OutcomeMalformedOutput, time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.Active))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Fragments.WithLabelValues("POSTER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Generations.WithLabelValues("POSTER", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Generations.WithLabelValues("SLIDES", "malformed_output")))

	n, err := testutil.GatherAndCount(reg, "paperviz_generation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
