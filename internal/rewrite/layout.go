package rewrite

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/staticmirror/internal/asset"
)

const (
	// AssetsDirName is the directory under the output root holding assets.
	AssetsDirName = "assets"

	// WorkersDirName is the subdirectory of the assets directory holding
	// worker bundles. Worker names are not guaranteed disjoint from other
	// asset names, so they get their own namespace.
	WorkersDirName = "wix-workers"
)

// Layout describes where localized files are placed in the output tree.
type Layout struct {
	// Root is the output root directory (the future web server root).
	Root string

	// AssetsDir is the directory receiving assets, normally Root/assets.
	AssetsDir string
}

// NewLayout returns the standard layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{
		Root:      root,
		AssetsDir: filepath.Join(root, AssetsDirName),
	}
}

// AssetPath returns the local path for an asset URL.
func (l Layout) AssetPath(absURL string) string {
	return filepath.Join(l.AssetsDir, asset.NameFor(absURL))
}

// WorkerPath returns the local path for a worker bundle URL.
func (l Layout) WorkerPath(absURL string) string {
	return filepath.Join(l.AssetsDir, WorkersDirName, asset.NameFor(absURL))
}

// RootPath returns the site-root-absolute URL path ("/assets/...") of a file
// inside the output tree.
func (l Layout) RootPath(path string) (string, error) {
	rel, err := filepath.Rel(l.Root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the output root %s", path, l.Root)
	}
	return "/" + rel, nil
}

// relativePath returns target relative to the directory of fromFile, using
// forward slashes as URL paths require.
func relativePath(fromFile, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(fromFile), target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
