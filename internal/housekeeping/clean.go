// Package housekeeping removes the generated artifacts of a target directory.
package housekeeping

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/banshee-data/animator/internal/assemble"
	"github.com/banshee-data/animator/internal/config"
	"github.com/banshee-data/animator/internal/fsutil"
	"github.com/banshee-data/animator/internal/monitoring"
)

// Clean deletes position files, images of the configured format, the dense
// index, the plot configuration, the video and the preview page. Trace files
// are never touched. Missing files are not errors, so a second call removes
// nothing and succeeds. The removed paths are returned in deletion order.
func Clean(fsys fsutil.FileSystem, c config.Config) ([]string, error) {
	naming := c.Naming()
	var removed []string

	for _, pattern := range []string{naming.PositionGlob(c.TargetDir), naming.ImageGlob(c.TargetDir)} {
		matches, err := fsys.Glob(pattern)
		if err != nil {
			return removed, fmt.Errorf("list %s: %w", pattern, err)
		}
		for _, p := range matches {
			if err := removeIfExists(fsys, p); err != nil {
				return removed, err
			}
			removed = append(removed, p)
		}
	}

	index, err := assemble.CleanIndex(fsys, assemble.Layout{
		Dir:      c.TargetDir,
		Prefix:   c.IndexPrefix,
		Ext:      c.ImageFormat,
		Manifest: c.ManifestName,
	})
	removed = append(removed, index...)
	if err != nil {
		return removed, err
	}

	for _, p := range []string{c.PlotConfigPath(), c.OutputPath(), c.PreviewPath()} {
		if !fsys.Exists(p) {
			continue
		}
		if err := removeIfExists(fsys, p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}

	monitoring.Logf("cleanup removed %d files from %s", len(removed), c.TargetDir)
	return removed, nil
}

func removeIfExists(fsys fsutil.FileSystem, p string) error {
	if err := fsys.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}
