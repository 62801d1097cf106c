// Package config holds the tuning settings for `call`. They are read from an
// optional YAML file with viper; anything not in the file keeps its default.
package config

import (
	"time"

	"github.com/brentp/clipsv/assemble"
	"github.com/brentp/clipsv/blat"
	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/clip"
	"github.com/brentp/clipsv/engine"
	"github.com/brentp/clipsv/shared"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// BreakpointConfig are the thresholds for defining and resolving a
// breakpoint.
type BreakpointConfig struct {
	// tumour clips must exceed this
	ClipCount int `mapstructure:"clip-count"`

	MinConsensusLength int     `mapstructure:"min-consensus-length"`
	MaxNFraction       float64 `mapstructure:"max-n-fraction"`

	// how far a split alignment block may be from the breakpoint
	BlockTolerance int `mapstructure:"block-tolerance"`

	// same-chromosome mates this close are ignored. A negative value uses the
	// longest read seen by extract.
	MinInsertSize int `mapstructure:"min-insert-size"`

	// mates may be on another chromosome only if both names have this prefix
	ChromPrefix string `mapstructure:"chrom-prefix"`

	UnmappedWindow int `mapstructure:"unmapped-window"`
}

// ClusterConfig are the settings for pairing breakpoints.
type ClusterConfig struct {
	MateTolerance      int `mapstructure:"mate-tolerance"`
	OverlapWindow      int `mapstructure:"overlap-window"`
	LowConfidenceClips int `mapstructure:"low-confidence-clips"`
}

// RescueConfig controls the second pass over unresolved breakpoints.
type RescueConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Window    int  `mapstructure:"window"`
	BatchSize int  `mapstructure:"batch-size"`
	MinClips  int  `mapstructure:"min-clips"`
}

// AssembleConfig is for consensus extension.
type AssembleConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MinOverlap int  `mapstructure:"min-overlap"`
	MaxLength  int  `mapstructure:"max-length"`
}

// BlatConfig is the aligner invocation.
type BlatConfig struct {
	Executable string `mapstructure:"executable"`
	Args       string `mapstructure:"args"`
	Command    string `mapstructure:"command"`
}

// RunConfig sets concurrency.
type RunConfig struct {
	Processes     int           `mapstructure:"processes"`
	DefineWorkers int           `mapstructure:"define-workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Config is the root-level settings struct.
type Config struct {
	Breakpoint BreakpointConfig `mapstructure:"breakpoint"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Rescue     RescueConfig     `mapstructure:"rescue"`
	Assemble   AssembleConfig   `mapstructure:"assemble"`
	Blat       BlatConfig       `mapstructure:"blat"`
	Run        RunConfig        `mapstructure:"run"`
}

func setDefaults(v *viper.Viper) {
	p := breakpoint.DefaultParams
	o := engine.DefaultOptions
	v.SetDefault("breakpoint.clip-count", p.ClipCount)
	v.SetDefault("breakpoint.min-consensus-length", p.MinConsensusLength)
	v.SetDefault("breakpoint.max-n-fraction", p.MaxNFraction)
	v.SetDefault("breakpoint.block-tolerance", p.BlockTolerance)
	v.SetDefault("breakpoint.min-insert-size", p.MinInsertSize)
	v.SetDefault("breakpoint.chrom-prefix", p.ChromPrefix)
	v.SetDefault("breakpoint.unmapped-window", p.UnmappedWindow)

	v.SetDefault("cluster.mate-tolerance", o.MateTolerance)
	v.SetDefault("cluster.overlap-window", o.OverlapWindow)
	v.SetDefault("cluster.low-confidence-clips", o.LowConfidenceClips)

	v.SetDefault("rescue.enabled", o.Rescue)
	v.SetDefault("rescue.window", o.RescueWindow)
	v.SetDefault("rescue.batch-size", o.RescueBatchSize)
	v.SetDefault("rescue.min-clips", o.RescueClips)

	v.SetDefault("assemble.enabled", true)
	v.SetDefault("assemble.min-overlap", 15)
	v.SetDefault("assemble.max-length", 500)

	v.SetDefault("blat.executable", "blat")
	v.SetDefault("blat.args", blat.DefaultArgs)
	v.SetDefault("blat.command", blat.DefaultCommand)

	v.SetDefault("run.processes", o.Processes)
	v.SetDefault("run.define-workers", o.DefineWorkers)
	v.SetDefault("run.timeout", o.Timeout)
}

// Default is the configuration used without a settings file.
func Default() Config {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the YAML settings at path over the defaults. An empty path gives
// the defaults.
func Load(path string) (Config, error) {
	var c Config
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, errors.Wrapf(err, "config: reading %s", path)
		}
		shared.Slogger.Printf("read settings from %s", v.ConfigFileUsed())
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, errors.Wrap(err, "config: decoding settings")
	}
	return c, c.validate()
}

func (c Config) validate() error {
	b := c.Breakpoint
	if b.ClipCount < 0 {
		return errors.Errorf("config: clip-count must not be negative, got %d", b.ClipCount)
	}
	if b.MaxNFraction < 0 || b.MaxNFraction > 1 {
		return errors.Errorf("config: max-n-fraction must be between 0 and 1, got %g", b.MaxNFraction)
	}
	if c.Rescue.BatchSize <= 0 {
		return errors.Errorf("config: rescue batch-size must be positive, got %d", c.Rescue.BatchSize)
	}
	return nil
}

// Assembler is nil when assembly is disabled.
func (c Config) Assembler() breakpoint.Assembler {
	if !c.Assemble.Enabled {
		return nil
	}
	return &assemble.Greedy{MinOverlap: c.Assemble.MinOverlap, MaxLength: c.Assemble.MaxLength}
}

// Params converts the breakpoint section. A negative MinInsertSize is
// replaced with the longest read in stats.
func (c Config) Params(stats clip.Stats) breakpoint.Params {
	b := c.Breakpoint
	p := breakpoint.Params{
		ClipCount:          b.ClipCount,
		MinConsensusLength: b.MinConsensusLength,
		MaxNFraction:       b.MaxNFraction,
		BlockTolerance:     b.BlockTolerance,
		MinInsertSize:      b.MinInsertSize,
		ChromPrefix:        b.ChromPrefix,
		UnmappedWindow:     b.UnmappedWindow,
		Assembler:          c.Assembler(),
	}
	if p.MinInsertSize < 0 {
		p.MinInsertSize = stats.MaxReadLength
		if p.MinInsertSize <= 0 {
			p.MinInsertSize = breakpoint.DefaultParams.MinInsertSize
		}
		shared.Slogger.Printf("using minimum insert size of %d", p.MinInsertSize)
	}
	return p
}

// Options converts everything the engine needs. Discordant clusters and the
// low-confidence writer are set by the caller.
func (c Config) Options(stats clip.Stats, unmapped bool) engine.Options {
	return engine.Options{
		Params:             c.Params(stats),
		Processes:          c.Run.Processes,
		DefineWorkers:      c.Run.DefineWorkers,
		MateTolerance:      c.Cluster.MateTolerance,
		LowConfidenceClips: c.Cluster.LowConfidenceClips,
		OverlapWindow:      c.Cluster.OverlapWindow,
		RescueWindow:       c.Rescue.Window,
		RescueBatchSize:    c.Rescue.BatchSize,
		RescueClips:        c.Rescue.MinClips,
		Timeout:            c.Run.Timeout,
		Unmapped:           unmapped,
		Rescue:             c.Rescue.Enabled,
	}
}

// Aligner builds the blat wrapper for reference.
func (c Config) Aligner(reference string) *blat.Blat {
	b := blat.New(reference)
	b.Executable = c.Blat.Executable
	b.Args = c.Blat.Args
	b.Command = c.Blat.Command
	return b
}
