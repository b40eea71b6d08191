package domain

import "path/filepath"

// Project is the set of images the subsystem works on for one open project.
type Project struct {
	Name   string
	Root   string
	Images []ProjectImage
}

// ProjectImage is one micrograph of a project and its overlay placement.
type ProjectImage struct {
	ID       string
	Path     string
	Name     string
	Parent   string
	X        float64
	Y        float64
	Rotation float64
	Scale    float64
	Opacity  float64
	Visible  bool
}

// ResolvedPath returns the image path, joined to the project root when relative.
func (p Project) ResolvedPath(img ProjectImage) string {
	if filepath.IsAbs(img.Path) || p.Root == "" {
		return img.Path
	}
	return filepath.Join(p.Root, img.Path)
}

// Requests returns a preparation request per image, in project order.
func (p Project) Requests() []ImageRequest {
	out := make([]ImageRequest, 0, len(p.Images))
	for _, img := range p.Images {
		out = append(out, ImageRequest{Path: p.ResolvedPath(img), Name: img.Name})
	}
	return out
}

// OverlayRecords returns the overlay placements of the project.
func (p Project) OverlayRecords() []OverlayRecord {
	out := make([]OverlayRecord, 0, len(p.Images))
	for _, img := range p.Images {
		out = append(out, OverlayRecord{
			ImageID:         img.ID,
			ParentID:        img.Parent,
			Path:            p.ResolvedPath(img),
			XOffset:         img.X,
			YOffset:         img.Y,
			RotationDegrees: img.Rotation,
			Scale:           img.Scale,
			Opacity:         img.Opacity,
			Visible:         img.Visible,
		})
	}
	return out
}

// Find returns the image with the given path, matching resolved paths.
func (p Project) Find(path string) (ProjectImage, bool) {
	for _, img := range p.Images {
		if p.ResolvedPath(img) == path {
			return img, true
		}
	}
	return ProjectImage{}, false
}
