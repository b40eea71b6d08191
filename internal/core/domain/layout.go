package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// AppDirName is the name of the application directory inside the user cache dir.
	AppDirName = "lithotile"

	// TilesDirName is the name of the tile tree inside the cache directory.
	TilesDirName = "tiles"

	// IndexFileName is the name of the persistent cache index.
	IndexFileName = "index.db"

	// TileExt is the file extension of cached tiles.
	TileExt = ".png"

	// ConfigFileName is the name of the configuration file looked up in the working directory.
	ConfigFileName = "lithotile.yaml"

	// ConfigEnvVar names the environment variable that overrides the configuration path.
	ConfigEnvVar = "LITHOTILE_CONFIG"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCacheDir returns the per-user cache directory for tiles.
// It falls back to a hidden directory in the working directory when the
// platform does not expose a cache location.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join("."+AppDirName, "cache")
	}
	return filepath.Join(base, AppDirName)
}

// TilesPath returns the root of the tile tree for a cache directory.
func TilesPath(cacheDir string) string {
	return filepath.Join(cacheDir, TilesDirName)
}

// IndexPath returns the path of the cache index database.
func IndexPath(cacheDir string) string {
	return filepath.Join(cacheDir, IndexFileName)
}

// FingerprintPath returns the directory holding every tile of one source state.
func FingerprintPath(cacheDir string, fp Fingerprint) string {
	return filepath.Join(TilesPath(cacheDir), string(fp))
}

// TilePath returns the on-disk location of a tile:
// <cacheDir>/tiles/<fingerprint>/<level>/<row>_<col>.png.
func TilePath(cacheDir string, key TileKey) string {
	return filepath.Join(
		FingerprintPath(cacheDir, key.Fingerprint),
		strconv.Itoa(key.Level),
		fmt.Sprintf("%d_%d%s", key.Row, key.Col, TileExt),
	)
}
