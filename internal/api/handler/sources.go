package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go-activity-pipeline/internal/model"
)

// errSourceNotAllowed marks a request naming a table the API may not read
var errSourceNotAllowed = errors.New("source not allowed")

// confineSources pins every local table of spec inside the data directory
// and rejects http(s) sources unless remote fetching is enabled. Relative
// paths are taken relative to the data directory.
func (h *Handler) confineSources(spec *model.AnalysisSpec) error {
	root, err := filepath.Abs(h.defaults.DataDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	if spec.DataDir, err = resolveUnder(root, spec.DataDir); err != nil {
		return fmt.Errorf("dataDir: %w", err)
	}
	for i := range spec.Sources {
		src := &spec.Sources[i]
		if isRemoteURL(src.URL) {
			if !h.defaults.AllowRemote {
				return fmt.Errorf("source %d: %w: remote tables are disabled", i, errSourceNotAllowed)
			}
			continue
		}
		if src.URL, err = resolveUnder(root, src.URL); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}

	// the dataset name is part of the conventional file names
	for _, sex := range model.Sexes {
		for _, kind := range []model.Kind{model.Activity, model.Temperature} {
			if path := spec.SourceFor(sex, kind); !isRemoteURL(path) && !within(root, path) {
				return fmt.Errorf("%s %s table: %w: outside the data directory", sex, kind, errSourceNotAllowed)
			}
		}
	}
	return nil
}

// resolveUnder maps path onto an absolute path inside root; empty means root
func resolveUnder(root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return root, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", fmt.Errorf("%w: %q is outside the data directory", errSourceNotAllowed, path)
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
