package ranforest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, 10, c.NumTrees())
	assert.Equal(t, NoLevelLimit, c.LevelLimit())
	assert.Equal(t, "info", c.LogLevel())

	split, err := c.SplitOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultSplitOptions(), split)
	assert.Equal(t, DefaultClusterOptions(), c.ClusterOptions())

	grow, err := c.GrowConfig(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, AxisKernelKind, grow.Kernel.Kind())
	assert.Equal(t, DepthFirst, grow.Order)
	assert.Zero(t, grow.Seed)

	precision, err := c.CenterPrecision()
	require.NoError(t, err)
	assert.Equal(t, FullPrecision, precision)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranforest.yaml")
	yaml := `
forest:
  num_trees: 5
  kernel: vantage_point
  order: bfs
  seed: 99
  workers: 2
split:
  max_depth: 12
  stop_num: 8
  converge: 0.5
  score: variance
cluster:
  replicate: 3
  wt_bandwidth: 2.5
  center_precision: float16
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.NumTrees())

	grow, err := c.GrowConfig(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, VantagePointKernelKind, grow.Kernel.Kind())
	assert.Equal(t, BreadthFirst, grow.Order)
	assert.Equal(t, uint64(99), grow.Seed)
	assert.Equal(t, 2, grow.Workers)
	assert.Equal(t, 12, grow.Split.MaxDepth)
	assert.Equal(t, 8, grow.Split.StopNum)
	assert.Equal(t, 0.5, grow.Split.Converge)
	assert.Equal(t, VarianceScore, grow.Split.Score)
	assert.Equal(t, DefaultSplitOptions().NumHypo, grow.Split.NumHypo, "unset keys keep defaults")

	opts := c.ClusterOptions()
	assert.Equal(t, 3, opts.Replicate)
	assert.Equal(t, 2.5, opts.WtBandwidth)
	assert.Equal(t, DefaultMaxIter, opts.MaxIter)

	precision, err := c.CenterPrecision()
	require.NoError(t, err)
	assert.Equal(t, HalfPrecision, precision)

	q, err := c.NewQuasiKMeans(4, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Options().Replicate)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{"forest.kernel", "largest_gap"},
		{"forest.order", "random"},
		{"split.score", "entropy"},
		{"split.num_hypo", 0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c := NewConfig()
			c.Set(tt.key, tt.value)
			_, err := c.GrowConfig(io.Discard)
			assert.Error(t, err)
		})
	}
}
