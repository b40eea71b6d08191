// Package config provides the settings and project file loader for lithotile.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/lithotile/internal/core/domain"
	"go.trai.ch/lithotile/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using YAML files.
type Loader struct {
	log ports.Logger
}

// NewLoader creates a new Loader.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Discover returns the settings file to use: the path in LITHOTILE_CONFIG, or
// lithotile.yaml in dir when it exists. An empty result means defaults.
func Discover(dir string) string {
	if p := os.Getenv(domain.ConfigEnvVar); p != "" {
		return p
	}
	p := filepath.Join(dir, domain.ConfigFileName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// LoadConfig reads the settings file at path on top of the defaults.
func (l *Loader) LoadConfig(path string) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return domain.Config{}, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	file := toSettingsFile(cfg)
	if err := decodeStrict(data, &file); err != nil {
		return domain.Config{}, zerr.With(
			zerr.Wrap(errors.Join(domain.ErrInvalidConfig, err), "failed to parse config file"),
			"path", path,
		)
	}

	cfg = fromSettingsFile(file)
	if cfg.CacheDir != domain.DefaultCacheDir() && !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(filepath.Dir(path), cfg.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, zerr.With(err, "path", path)
	}
	return cfg, nil
}

// LoadProject reads a project file. Relative image paths resolve against the
// project root, which itself defaults to the directory holding the file.
func (l *Loader) LoadProject(path string) (domain.Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Project{}, zerr.With(zerr.Wrap(domain.ErrProjectNotFound, "failed to read project file"), "path", path)
		}
		return domain.Project{}, zerr.With(zerr.Wrap(err, "failed to read project file"), "path", path)
	}

	var file ProjectFile
	if err := decodeStrict(data, &file); err != nil {
		return domain.Project{}, zerr.With(zerr.Wrap(err, "failed to parse project file"), "path", path)
	}
	if len(file.Images) == 0 {
		return domain.Project{}, zerr.With(zerr.Wrap(domain.ErrNoImages, "load project"), "path", path)
	}

	dir := filepath.Dir(path)
	project := domain.Project{
		Name: file.Name,
		Root: file.Root,
	}
	if project.Name == "" {
		project.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	switch {
	case project.Root == "":
		project.Root = dir
	case !filepath.IsAbs(project.Root):
		project.Root = filepath.Join(dir, project.Root)
	}

	seen := make(map[string]bool, len(file.Images))
	for i, dto := range file.Images {
		img, err := l.toImage(i, dto)
		if err != nil {
			return domain.Project{}, zerr.With(err, "path", path)
		}
		if seen[img.ID] {
			return domain.Project{}, zerr.With(zerr.Wrap(domain.ErrDuplicateImage, "load project"), "image_id", img.ID)
		}
		seen[img.ID] = true
		project.Images = append(project.Images, img)
	}
	return project, nil
}

func (l *Loader) toImage(i int, dto ImageDTO) (domain.ProjectImage, error) {
	if dto.Path == "" {
		return domain.ProjectImage{}, zerr.With(zerr.New("image path is required"), "index", i)
	}

	img := domain.ProjectImage{
		ID:       dto.ID,
		Path:     filepath.FromSlash(dto.Path),
		Name:     dto.Name,
		Parent:   dto.Parent,
		X:        dto.X,
		Y:        dto.Y,
		Rotation: dto.Rotation,
		Scale:    1,
		Opacity:  1,
		Visible:  true,
	}
	if img.ID == "" {
		img.ID = dto.Path
	}
	if img.Name == "" {
		img.Name = filepath.Base(img.Path)
	}
	if dto.Scale != nil {
		if *dto.Scale <= 0 {
			return domain.ProjectImage{}, zerr.With(zerr.New("image scale must be positive"), "image_id", img.ID)
		}
		img.Scale = *dto.Scale
	}
	if dto.Opacity != nil {
		img.Opacity = *dto.Opacity
		if img.Opacity < 0 || img.Opacity > 1 {
			img.Opacity = min(max(img.Opacity, 0), 1)
			l.log.Warn(fmt.Sprintf("image %s: opacity %v clamped to %v", img.ID, *dto.Opacity, img.Opacity))
		}
	}
	if dto.Visible != nil {
		img.Visible = *dto.Visible
	}
	return img, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func toSettingsFile(c domain.Config) SettingsFile {
	return SettingsFile{
		CacheDir:         c.CacheDir,
		TileSize:         c.TileSize,
		ScaleRatio:       c.ScaleRatio,
		MinOverlayPixels: c.MinOverlayPixels,
		PreviewLevels:    c.PreviewLevels,
		Workers:          c.Workers,
		CacheBudget:      c.CacheBudget,
		FrameBudget:      c.FrameBudget,
		BuildDeadline:    c.BuildDeadline,
		BackfillWorkers:  c.BackfillWorkers,
		BackfillQueue:    c.BackfillQueue,
		MemoryTiles:      c.MemoryTiles,
		HandlePool:       c.HandlePool,
		MaxDecodePixels:  c.MaxDecodePixels,
		Filter:           c.Filter,
		Fingerprint:      c.Fingerprint,
		FlushInterval:    c.FlushInterval,
	}
}

func fromSettingsFile(f SettingsFile) domain.Config {
	return domain.Config{
		CacheDir:         f.CacheDir,
		TileSize:         f.TileSize,
		ScaleRatio:       f.ScaleRatio,
		MinOverlayPixels: f.MinOverlayPixels,
		PreviewLevels:    f.PreviewLevels,
		Workers:          f.Workers,
		CacheBudget:      f.CacheBudget,
		FrameBudget:      f.FrameBudget,
		BuildDeadline:    f.BuildDeadline,
		BackfillWorkers:  f.BackfillWorkers,
		BackfillQueue:    f.BackfillQueue,
		MemoryTiles:      f.MemoryTiles,
		HandlePool:       f.HandlePool,
		MaxDecodePixels:  f.MaxDecodePixels,
		Filter:           strings.ToLower(f.Filter),
		Fingerprint:      strings.ToLower(f.Fingerprint),
		FlushInterval:    f.FlushInterval,
	}
}
