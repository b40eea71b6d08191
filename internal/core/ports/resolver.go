package ports

//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks

// ImageResolver expands image arguments into concrete source paths.
type ImageResolver interface {
	// ResolveImages resolves files, directories and glob patterns relative to
	// root into a sorted, de-duplicated list of image paths.
	ResolveImages(patterns []string, root string) ([]string, error)
}
