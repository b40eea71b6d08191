package config

import "time"

// SettingsFile represents the structure of the lithotile.yaml settings file.
type SettingsFile struct {
	CacheDir         string        `yaml:"cache_dir"`
	TileSize         int           `yaml:"tile_size"`
	ScaleRatio       float64       `yaml:"scale_ratio"`
	MinOverlayPixels float64       `yaml:"min_overlay_pixels"`
	PreviewLevels    int           `yaml:"preview_levels"`
	Workers          int           `yaml:"workers"`
	CacheBudget      int64         `yaml:"cache_budget"`
	FrameBudget      time.Duration `yaml:"frame_budget"`
	BuildDeadline    time.Duration `yaml:"build_deadline"`
	BackfillWorkers  int           `yaml:"backfill_workers"`
	BackfillQueue    int           `yaml:"backfill_queue"`
	MemoryTiles      int           `yaml:"memory_tiles"`
	HandlePool       int           `yaml:"handle_pool"`
	MaxDecodePixels  int64         `yaml:"max_decode_pixels"`
	Filter           string        `yaml:"filter"`
	Fingerprint      string        `yaml:"fingerprint"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
}

// ProjectFile represents a project file listing micrographs and their placement.
type ProjectFile struct {
	Name   string     `yaml:"name"`
	Root   string     `yaml:"root"`
	Images []ImageDTO `yaml:"images"`
}

// ImageDTO represents one image entry of a project file.
// Pointer fields distinguish an omitted value from an explicit zero.
type ImageDTO struct {
	ID       string   `yaml:"id"`
	Path     string   `yaml:"path"`
	Name     string   `yaml:"name"`
	Parent   string   `yaml:"parent"`
	X        float64  `yaml:"x"`
	Y        float64  `yaml:"y"`
	Rotation float64  `yaml:"rotation"`
	Scale    *float64 `yaml:"scale"`
	Opacity  *float64 `yaml:"opacity"`
	Visible  *bool    `yaml:"visible"`
}
