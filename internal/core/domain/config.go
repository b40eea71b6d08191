package domain

import (
	"runtime"
	"slices"
	"time"

	"go.trai.ch/zerr"
)

// Fingerprint modes.
const (
	FingerprintStat    = "stat"
	FingerprintSampled = "sampled"
	FingerprintContent = "content"
)

// Resampling filters.
const (
	FilterArea           = "area"
	FilterNearest        = "nearest"
	FilterApproxBiLinear = "approxbilinear"
	FilterBiLinear       = "bilinear"
	FilterCatmullRom     = "catmullrom"
)

// Config holds the runtime settings of the tile subsystem.
type Config struct {
	CacheDir         string
	TileSize         int
	ScaleRatio       float64
	MinOverlayPixels float64
	PreviewLevels    int
	Workers          int
	CacheBudget      int64
	FrameBudget      time.Duration
	BuildDeadline    time.Duration
	BackfillWorkers  int
	BackfillQueue    int
	MemoryTiles      int
	HandlePool       int
	MaxDecodePixels  int64
	Filter           string
	Fingerprint      string
	FlushInterval    time.Duration
}

// DefaultConfig returns the settings used when no configuration file exists.
func DefaultConfig() Config {
	return Config{
		CacheDir:         DefaultCacheDir(),
		TileSize:         DefaultTileSize,
		ScaleRatio:       DefaultScaleRatio,
		MinOverlayPixels: 8,
		PreviewLevels:    2,
		Workers:          runtime.NumCPU(),
		CacheBudget:      4 << 30,
		FrameBudget:      12 * time.Millisecond,
		BuildDeadline:    8 * time.Millisecond,
		BackfillWorkers:  2,
		BackfillQueue:    256,
		MemoryTiles:      512,
		HandlePool:       4,
		MaxDecodePixels:  256 << 20,
		Filter:           FilterArea,
		Fingerprint:      FingerprintSampled,
		FlushInterval:    2 * time.Second,
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	invalid := func(field string, value any) error {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "validate "+field), field, value)
	}

	switch {
	case c.CacheDir == "":
		return invalid("cache_dir", c.CacheDir)
	case c.TileSize <= 0:
		return invalid("tile_size", c.TileSize)
	case c.ScaleRatio <= 0 || c.ScaleRatio >= 1:
		return invalid("scale_ratio", c.ScaleRatio)
	case c.MinOverlayPixels < 0:
		return invalid("min_overlay_pixels", c.MinOverlayPixels)
	case c.PreviewLevels < 1:
		return invalid("preview_levels", c.PreviewLevels)
	case c.Workers < 1:
		return invalid("workers", c.Workers)
	case c.CacheBudget < 0:
		return invalid("cache_budget", c.CacheBudget)
	case c.FrameBudget <= 0:
		return invalid("frame_budget", c.FrameBudget)
	case c.BuildDeadline <= 0:
		return invalid("build_deadline", c.BuildDeadline)
	case c.BackfillWorkers < 1:
		return invalid("backfill_workers", c.BackfillWorkers)
	case c.BackfillQueue < 1:
		return invalid("backfill_queue", c.BackfillQueue)
	case c.MemoryTiles < 1:
		return invalid("memory_tiles", c.MemoryTiles)
	case c.HandlePool < 1:
		return invalid("handle_pool", c.HandlePool)
	case c.MaxDecodePixels <= 0:
		return invalid("max_decode_pixels", c.MaxDecodePixels)
	case !slices.Contains([]string{FilterArea, FilterNearest, FilterApproxBiLinear, FilterBiLinear, FilterCatmullRom}, c.Filter):
		return invalid("filter", c.Filter)
	case !slices.Contains([]string{FingerprintStat, FingerprintSampled, FingerprintContent}, c.Fingerprint):
		return invalid("fingerprint", c.Fingerprint)
	case c.FlushInterval <= 0:
		return invalid("flush_interval", c.FlushInterval)
	}
	return nil
}
