package ports

import "go.trai.ch/lithotile/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks

// ConfigLoader reads settings and project files.
type ConfigLoader interface {
	// LoadConfig reads the settings file at path; an empty path yields defaults.
	LoadConfig(path string) (domain.Config, error)
	// LoadProject reads a project file listing images and their overlay placement.
	LoadProject(path string) (domain.Project, error)
}
