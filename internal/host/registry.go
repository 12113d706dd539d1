// Package host answers which worlds exist. Worlds are the directories of a
// world container that hold a level.dat.
package host

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/joebot/worldreset/internal/schedule"
)

// World is a world known to the host.
type World struct {
	Name string
	Dir  string
}

// Registry resolves world names case-insensitively.
type Registry interface {
	Worlds() []World
	Lookup(name string) (World, bool)
	Dir(name string) (string, bool)
}

// DirRegistry scans a world container on every call, so worlds created or
// removed while running are picked up.
type DirRegistry struct {
	root string
}

// NewDirRegistry returns a registry over the world container at root.
func NewDirRegistry(root string) *DirRegistry {
	return &DirRegistry{root: root}
}

// Root returns the world container.
func (r *DirRegistry) Root() string { return r.root }

// Worlds lists the worlds sorted by name.
func (r *DirRegistry) Worlds() []World {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		slog.Warn("Host: cannot list worlds", "root", r.root, "err", err)
		return nil
	}
	var worlds []World
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, "level.dat")); err != nil {
			continue
		}
		worlds = append(worlds, World{Name: e.Name(), Dir: dir})
	}
	sort.Slice(worlds, func(i, j int) bool { return worlds[i].Name < worlds[j].Name })
	return worlds
}

// Lookup finds a world by name, ignoring case. An exact match wins over a
// folded one.
func (r *DirRegistry) Lookup(name string) (World, bool) {
	key := schedule.FoldName(name)
	var found World
	ok := false
	for _, w := range r.Worlds() {
		if w.Name == name {
			return w, true
		}
		if !ok && schedule.FoldName(w.Name) == key {
			found, ok = w, true
		}
	}
	return found, ok
}

// Dir returns the directory of name: the registered world if there is one,
// otherwise root/name. Names that would leave the container are refused.
func (r *DirRegistry) Dir(name string) (string, bool) {
	if schedule.ValidWorldName(name) != nil {
		return "", false
	}
	if w, ok := r.Lookup(name); ok {
		return w.Dir, true
	}
	dir := filepath.Join(r.root, name)
	if rel, err := filepath.Rel(r.root, dir); err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return dir, true
}

// Names returns the world names.
func Names(reg Registry) []string {
	worlds := reg.Worlds()
	names := make([]string, len(worlds))
	for i, w := range worlds {
		names[i] = w.Name
	}
	return names
}
