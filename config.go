package ranforest

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds forest and clustering settings backed by viper. Keys live
// under forest.*, split.*, cluster.* and logging.*; every key has a
// default, so a config file only needs the values it changes.
//
// Example (YAML):
//
//	forest:
//	  num_trees: 10
//	  kernel: vantage_point
//	  order: bfs
//	  seed: 7
//	split:
//	  stop_num: 8
//	  converge: 0.01
//	cluster:
//	  replicate: 5
//	logging:
//	  level: debug
type Config struct {
	v *viper.Viper
}

// NewConfig creates a configuration holding the defaults.
func NewConfig() *Config {
	v := viper.New()

	split := DefaultSplitOptions()
	cluster := DefaultClusterOptions()

	v.SetDefault("forest.num_trees", 10)
	v.SetDefault("forest.kernel", string(AxisKernelKind))
	v.SetDefault("forest.order", DepthFirst.String())
	v.SetDefault("forest.seed", 0)
	v.SetDefault("forest.workers", 0)
	v.SetDefault("forest.level_limit", NoLevelLimit)

	v.SetDefault("split.max_depth", split.MaxDepth)
	v.SetDefault("split.stop_num", split.StopNum)
	v.SetDefault("split.num_hypo", split.NumHypo)
	v.SetDefault("split.converge", split.Converge)
	v.SetDefault("split.proportion", split.Proportion)
	v.SetDefault("split.score", string(split.Score))
	v.SetDefault("split.proj_dim", split.ProjDim)

	v.SetDefault("cluster.max_iter", cluster.MaxIter)
	v.SetDefault("cluster.replicate", cluster.Replicate)
	v.SetDefault("cluster.converge", cluster.Converge)
	v.SetDefault("cluster.wt_bandwidth", cluster.WtBandwidth)
	v.SetDefault("cluster.workers", 0)
	v.SetDefault("cluster.center_precision", FullPrecision.String())

	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadConfig reads a YAML, TOML or JSON file over the defaults.
func LoadConfig(path string) (*Config, error) {
	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromFile merges a config file into c.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// Set overrides a single key.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) NumTrees() int   { return c.v.GetInt("forest.num_trees") }
func (c *Config) LevelLimit() int { return c.v.GetInt("forest.level_limit") }
func (c *Config) LogLevel() string {
	return c.v.GetString("logging.level")
}

// SplittingOrder parses forest.order ("dfs" or "bfs").
func (c *Config) SplittingOrder() (SplittingOrder, error) {
	switch s := c.v.GetString("forest.order"); s {
	case "dfs", "":
		return DepthFirst, nil
	case "bfs":
		return BreadthFirst, nil
	default:
		return 0, fmt.Errorf("unknown splitting order: %q", s)
	}
}

// SplitOptions assembles the split.* keys.
func (c *Config) SplitOptions() (SplitOptions, error) {
	opts := SplitOptions{
		MaxDepth:   c.v.GetInt("split.max_depth"),
		StopNum:    c.v.GetInt("split.stop_num"),
		NumHypo:    c.v.GetInt("split.num_hypo"),
		Converge:   c.v.GetFloat64("split.converge"),
		Proportion: c.v.GetFloat64("split.proportion"),
		Score:      ScoreKind(c.v.GetString("split.score")),
		ProjDim:    c.v.GetInt("split.proj_dim"),
	}
	if opts.Score != BalanceScore && opts.Score != VarianceScore {
		return SplitOptions{}, fmt.Errorf("unknown split score: %q", opts.Score)
	}
	if opts.NumHypo < 1 {
		return SplitOptions{}, fmt.Errorf("split.num_hypo must be positive: %d", opts.NumHypo)
	}
	return opts, nil
}

// GrowConfig assembles the forest.* and split.* keys, with a logger at the
// configured level writing to w.
func (c *Config) GrowConfig(w io.Writer) (GrowConfig, error) {
	kernel, err := NewKernel(KernelKind(c.v.GetString("forest.kernel")))
	if err != nil {
		return GrowConfig{}, err
	}
	order, err := c.SplittingOrder()
	if err != nil {
		return GrowConfig{}, err
	}
	split, err := c.SplitOptions()
	if err != nil {
		return GrowConfig{}, err
	}
	return GrowConfig{
		Kernel:  kernel,
		Order:   order,
		Split:   split,
		Seed:    c.v.GetUint64("forest.seed"),
		Workers: c.v.GetInt("forest.workers"),
		Logger:  c.CreateLogger(w),
	}, nil
}

// ClusterOptions assembles the cluster.* keys.
func (c *Config) ClusterOptions() ClusterOptions {
	return ClusterOptions{
		MaxIter:     c.v.GetInt("cluster.max_iter"),
		Replicate:   c.v.GetInt("cluster.replicate"),
		Converge:    c.v.GetFloat64("cluster.converge"),
		WtBandwidth: c.v.GetFloat64("cluster.wt_bandwidth"),
	}
}

// CenterPrecision parses cluster.center_precision.
func (c *Config) CenterPrecision() (CenterPrecision, error) {
	return ParseCenterPrecision(c.v.GetString("cluster.center_precision"))
}

// NewQuasiKMeans builds a clustering engine for dim-dimensional points from
// the cluster.* keys.
func (c *Config) NewQuasiKMeans(dim int, w io.Writer) (*QuasiKMeans, error) {
	q, err := NewQuasiKMeans(dim, c.ClusterOptions())
	if err != nil {
		return nil, err
	}
	q.Workers = c.v.GetInt("cluster.workers")
	q.Logger = c.CreateLogger(w)
	return q, nil
}

// CreateLogger returns a logger at logging.level writing to w.
func (c *Config) CreateLogger(w io.Writer) zerolog.Logger {
	return NewLogger(c.LogLevel(), w)
}
