// Package region deletes the outer region files of a world so the terrain
// regenerates, keeping the four spawn regions.
package region

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
)

var regionName = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// Result summarises one prune.
type Result struct {
	Deleted []string // paths relative to the world directory
	Failed  int
	Freed   int64
}

// ParseRegionName returns the tile coordinates of a region file name.
func ParseRegionName(name string) (x, z int, ok bool) {
	m := regionName.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(m[1])
	z, errZ := strconv.Atoi(m[2])
	if errX != nil || errZ != nil {
		return 0, 0, false
	}
	return x, z, true
}

// IsRegionFile reports whether name follows the r.<X>.<Z>.mca pattern.
func IsRegionFile(name string) bool {
	return regionName.MatchString(name)
}

// IsCentral reports whether the tile is one of the four around the origin.
func IsCentral(x, z int) bool {
	return (x == 0 || x == -1) && (z == 0 || z == -1)
}

// Outer reports whether name is a region file that Prune deletes.
func Outer(name string) bool {
	x, z, ok := ParseRegionName(name)
	return ok && !IsCentral(x, z)
}

// Prune deletes every outer region file under dir. A missing dir, or a path
// that is not a directory, is not an error. Symbolic links are never
// followed, and a failure on one file does not stop the walk.
func Prune(dir string) (Result, error) {
	var res Result

	info, err := os.Lstat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if !info.IsDir() {
		return res, nil
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Region: cannot read", "path", path, "err", err)
			res.Failed++
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !Outer(d.Name()) {
			return nil
		}

		var size int64
		if fi, err := d.Info(); err == nil {
			size = fi.Size()
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("Region: delete failed", "path", path, "err", err)
			res.Failed++
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		res.Deleted = append(res.Deleted, rel)
		res.Freed += size
		return nil
	})
	if err != nil {
		return res, err
	}

	slog.Info("Region: pruned", "dir", dir, "deleted", len(res.Deleted), "failed", res.Failed, "freed", humanize.Bytes(uint64(res.Freed)))
	if len(res.Deleted) > 0 {
		slog.Debug("Region: deleted files", "dir", dir, "files", res.Deleted)
	}
	return res, nil
}
