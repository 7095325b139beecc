package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("deployments", func(t *testing.T) {
		m := New()
		m.DeploymentFinished("Rollup", "success")
		m.DeploymentFinished("Rollup", "success")
		m.DeploymentFinished("AnyTrust", "failed")

		assert.Equal(t, float64(2), testutil.ToFloat64(m.deploymentsTotal.WithLabelValues("Rollup", "success")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.deploymentsTotal.WithLabelValues("AnyTrust", "failed")))
	})

	t.Run("transactions", func(t *testing.T) {
		m := New()
		m.TransactionSent("approve", "confirmed")
		m.TransactionSent("create_rollup", "reverted")

		assert.Equal(t, 2, testutil.CollectAndCount(m.transactions))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.transactions.WithLabelValues("create_rollup", "reverted")))
	})

	t.Run("phase durations", func(t *testing.T) {
		m := New()
		m.PhaseCompleted("submitting", 2*time.Second)
		m.PhaseCompleted("persisting", 10*time.Millisecond)

		assert.Equal(t, 2, testutil.CollectAndCount(m.phaseDuration))
	})

	t.Run("registries are independent", func(t *testing.T) {
		a, b := New(), New()
		a.ArtifactsWritten("success")

		assert.Equal(t, float64(1), testutil.ToFloat64(a.sessionWrites.WithLabelValues("artifacts", "success")))
		assert.Equal(t, 0, testutil.CollectAndCount(b.sessionWrites))
	})

	t.Run("writes by slot", func(t *testing.T) {
		m := New()
		m.SessionWritten("success")
		m.SessionWritten("failed")
		m.ArtifactsWritten("success")

		assert.Equal(t, 3, testutil.CollectAndCount(m.sessionWrites))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.sessionWrites.WithLabelValues("session", "failed")))
	})
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.DeploymentFinished("CelestiaDA", "success")

	path := filepath.Join(t.TempDir(), "orbit_setup.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `orbit_setup_deployments_total{chain_type="CelestiaDA",result="success"} 1`)
}
