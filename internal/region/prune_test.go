package region

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestParseRegionName(t *testing.T) {
	tests := []struct {
		name string
		x, z int
		ok   bool
	}{
		{"r.0.0.mca", 0, 0, true},
		{"r.-1.-1.mca", -1, -1, true},
		{"r.12.-340.mca", 12, -340, true},
		{"r.0.0.mcr", 0, 0, false},
		{"r.a.0.mca", 0, 0, false},
		{"r.0.0.mca.bak", 0, 0, false},
		{"xr.0.0.mca", 0, 0, false},
		{"r.--1.0.mca", 0, 0, false},
	}
	for _, tt := range tests {
		x, z, ok := ParseRegionName(tt.name)
		if ok != tt.ok || x != tt.x || z != tt.z {
			t.Errorf("ParseRegionName(%q) = %d, %d, %v", tt.name, x, z, ok)
		}
	}
}

func TestIsCentral(t *testing.T) {
	central := [][2]int{{0, 0}, {0, -1}, {-1, 0}, {-1, -1}}
	for _, c := range central {
		if !IsCentral(c[0], c[1]) {
			t.Errorf("IsCentral(%d, %d) = false", c[0], c[1])
		}
	}
	for _, c := range [][2]int{{1, 0}, {0, 1}, {-2, -1}, {5, 5}} {
		if IsCentral(c[0], c[1]) {
			t.Errorf("IsCentral(%d, %d) = true", c[0], c[1])
		}
	}
	if Outer("r.-0.0.mca") {
		t.Error("r.-0.0.mca parses to the origin and must be kept")
	}
}

func TestPruneKeepsCentralRegions(t *testing.T) {
	world := filepath.Join(t.TempDir(), "alpha")
	keep := []string{
		"r.0.0.mca",
		"r.0.-1.mca",
		filepath.Join("DIM1", "region", "r.-1.0.mca"),
		filepath.Join("DIM1", "region", "r.-1.-1.mca"),
		"level.dat",
		filepath.Join("region", "r.5.5.mca.bak"),
	}
	remove := []string{
		"r.5.5.mca",
		"r.-3.2.mca",
		filepath.Join("DIM1", "region", "r.1.0.mca"),
	}
	for _, f := range keep {
		touch(t, filepath.Join(world, f), 4)
	}
	for _, f := range remove {
		touch(t, filepath.Join(world, f), 100)
	}

	res, err := Prune(world)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	for _, f := range keep {
		if !exists(filepath.Join(world, f)) {
			t.Errorf("%s was deleted", f)
		}
	}
	for _, f := range remove {
		if exists(filepath.Join(world, f)) {
			t.Errorf("%s still present", f)
		}
	}

	sort.Strings(res.Deleted)
	want := append([]string(nil), remove...)
	sort.Strings(want)
	if len(res.Deleted) != len(want) {
		t.Fatalf("Deleted = %v, want %v", res.Deleted, want)
	}
	for i := range want {
		if res.Deleted[i] != want[i] {
			t.Errorf("Deleted[%d] = %s, want %s", i, res.Deleted[i], want[i])
		}
	}
	if res.Freed != 300 || res.Failed != 0 {
		t.Errorf("Freed = %d, Failed = %d", res.Freed, res.Failed)
	}
}

func TestPruneMissingOrFile(t *testing.T) {
	dir := t.TempDir()
	if res, err := Prune(filepath.Join(dir, "missing")); err != nil || len(res.Deleted) != 0 {
		t.Errorf("missing dir: %+v, %v", res, err)
	}

	file := filepath.Join(dir, "r.5.5.mca")
	touch(t, file, 1)
	if res, err := Prune(file); err != nil || len(res.Deleted) != 0 {
		t.Errorf("file path: %+v, %v", res, err)
	}
	if !exists(file) {
		t.Error("Prune on a file path deleted it")
	}
}

func TestPruneDoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "outside")
	world := filepath.Join(root, "world")
	touch(t, filepath.Join(outside, "r.9.9.mca"), 1)
	touch(t, filepath.Join(world, "level.dat"), 1)

	if err := os.Symlink(outside, filepath.Join(world, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "r.9.9.mca"), filepath.Join(world, "r.8.8.mca")); err != nil {
		t.Fatal(err)
	}

	if _, err := Prune(world); err != nil {
		t.Fatal(err)
	}
	if !exists(filepath.Join(outside, "r.9.9.mca")) {
		t.Error("file outside the world was deleted through a symlink")
	}
	if !exists(filepath.Join(world, "r.8.8.mca")) {
		t.Error("symlink named like a region file was deleted")
	}
}
