package bundler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/tsbundle/internal/variants"
)

// clean removes the output directory of every descriptor with Clean set.
// It must run once before any variant starts building.
func (r *Runner) clean(ctx context.Context, descriptors []variants.Descriptor) error {
	dirs, err := cleanDirs(descriptors)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		zerolog.Ctx(ctx).Info().Str("dir", dir).Msg("Cleaning output directory")
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
	}

	return nil
}

// cleanDirs returns the absolute directories to remove, with any directory
// nested inside another one dropped.
func cleanDirs(descriptors []variants.Descriptor) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string

	for _, d := range descriptors {
		if !d.Clean {
			continue
		}

		wd, err := absWorkingDir(d.WorkingDir)
		if err != nil {
			return nil, err
		}

		dir := filepath.Clean(filepath.Join(wd, d.OutDir))
		if !within(wd, dir) {
			return nil, fmt.Errorf("%w %s: not below %s", ErrUnsafeClean, dir, wd)
		}

		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	slices.Sort(dirs)

	var collapsed []string
	for _, dir := range dirs {
		if !slices.ContainsFunc(collapsed, func(parent string) bool { return within(parent, dir) }) {
			collapsed = append(collapsed, dir)
		}
	}

	return collapsed, nil
}

// within reports whether dir is strictly below parent.
func within(parent, dir string) bool {
	rel, err := filepath.Rel(parent, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
