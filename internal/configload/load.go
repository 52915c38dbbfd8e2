package configload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/multiversego/internal/config"
)

// DefaultFiles is the discovery order for configuration files when no
// explicit path is given.
var DefaultFiles = []string{
	"multiverse.hcl",
	"multiverse.toml",
	"multiverse.json",
	"multiverse.yaml",
	"multiverse.yml",
}

// ForPath returns the loader for a configuration file, chosen by extension.
func ForPath(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return NewHCLLoader(), nil
	case ".toml":
		return NewTOMLLoader(), nil
	case ".json":
		return NewJSONLoader(), nil
	case ".yaml", ".yml":
		return NewYAMLLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported configuration format %q (supported: .hcl, .toml, .json, .yaml)", filepath.Ext(path))
	}
}

// Load reads the configuration file at path with the loader matching its
// extension.
func Load(ctx context.Context, path string) (*config.Model, error) {
	loader, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, path)
}

// Discover returns the first default configuration file present in dir.
func Discover(dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no configuration file found in %s (looked for %s)", dir, strings.Join(DefaultFiles, ", "))
}
