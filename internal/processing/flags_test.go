package processing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inFlight(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "storefront_processing_in_flight" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("storefront_processing_in_flight not registered")
	return 0
}

func TestFlagSet_MarkClear(t *testing.T) {
	flags := NewFlagSet(metrics.NewWithRegisterer(prometheus.NewRegistry()))

	assert.False(t, flags.IsProcessing("p1"))

	flags.Mark("p1")
	flags.Mark("p2")
	assert.True(t, flags.IsProcessing("p1"))
	assert.Equal(t, map[string]bool{"p1": true, "p2": true}, flags.Snapshot())

	flags.Clear("p1")
	flags.Clear("p1")
	assert.False(t, flags.IsProcessing("p1"))
	assert.True(t, flags.IsProcessing("p2"))

	flags.Reset()
	assert.Empty(t, flags.Snapshot())
}

func TestFlagSet_SnapshotIsCopy(t *testing.T) {
	flags := NewFlagSet(nil)
	flags.Mark("p1")

	snap := flags.Snapshot()
	snap["p2"] = true

	assert.False(t, flags.IsProcessing("p2"))
}

func TestFlagSet_Concurrent(t *testing.T) {
	flags := NewFlagSet(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i%10)
			flags.Mark(id)
			_ = flags.IsProcessing(id)
			flags.Clear(id)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, flags.Snapshot())
}

func TestFlagSet_GaugeSharedAcrossSets(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	alice := NewFlagSet(m)
	bob := NewFlagSet(m)

	alice.Mark("p1")
	alice.Mark("p2")
	alice.Mark("p2")
	bob.Mark("p9")
	assert.Equal(t, 3.0, inFlight(t, reg))

	bob.Clear("p9")
	bob.Clear("p9")
	assert.Equal(t, 2.0, inFlight(t, reg), "other sessions keep their in-flight items")
	assert.Equal(t, map[string]bool{"p1": true, "p2": true}, alice.Snapshot())

	alice.Reset()
	assert.Equal(t, 0.0, inFlight(t, reg))
}
