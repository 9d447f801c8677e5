package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	get "github.com/hashicorp/go-getter"
)

// Fetch resolves src to a local config file. Existing local paths are returned
// unchanged; anything else (http, git::, s3::, ...) is downloaded into dir.
func Fetch(ctx context.Context, src, dir string) (string, error) {
	if fi, err := os.Stat(src); err == nil {
		if fi.IsDir() {
			return "", fmt.Errorf("fetch %s: is a directory", src)
		}
		return src, nil
	}

	name := src
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	name = path.Base(name)
	if name == "." || name == "/" || filepath.Ext(name) == "" {
		return "", fmt.Errorf("fetch %s: %w: cannot infer file type", src, ErrUnsupportedFormat)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create fetch dir: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := get.GetFile(dst, src, get.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("fetch %s: %w", src, err)
	}
	return dst, nil
}
