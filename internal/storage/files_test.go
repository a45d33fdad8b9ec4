package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFile_HuJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.json")
	writeFile(t, path, `{
  // club station
  "club": {"mode": "Club", "lat": 42.7, "lon": 23.3, "comment": "LZ1KCP",},
}`)

	set, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	m := set["club"]
	if m == nil {
		t.Fatalf("expected marker club, got %v", set.IDs())
	}
	if m.Mode != "Club" || m.Lat != 42.7 || m.Lon != 23.3 {
		t.Errorf("unexpected marker %+v", m)
	}
	if got := m.String("comment"); got != "LZ1KCP" {
		t.Errorf("comment = %q, want LZ1KCP", got)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.json")
	writeFile(t, path, `{"club": `)

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() expected error for malformed file")
	}
}

func TestLoadFiles_LaterOverrides(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	broken := filepath.Join(dir, "broken.json")

	writeFile(t, first, `{"a": {"mode":"Club","lat":1,"lon":1,"comment":"first"}, "b": {"mode":"Club","lat":2,"lon":2}}`)
	writeFile(t, second, `{"a": {"mode":"Club","lat":1,"lon":1,"comment":"second"}}`)
	writeFile(t, broken, `[`)

	set := LoadFiles(Paths{first, filepath.Join(dir, "absent.json"), broken, second})

	if len(set) != 2 {
		t.Fatalf("LoadFiles() returned %v, want a and b", set.IDs())
	}
	if got := set["a"].String("comment"); got != "second" {
		t.Errorf("comment = %q, want the later file to win", got)
	}
}

func TestDefaultPaths_Resolve(t *testing.T) {
	dir := t.TempDir()
	markersDir := filepath.Join(dir, "markers.d")
	if err := os.Mkdir(markersDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(markersDir, "b.json"), `{}`)
	writeFile(t, filepath.Join(markersDir, "a.json"), `{}`)
	writeFile(t, filepath.Join(markersDir, "notes.txt"), `ignored`)

	paths, warnings := DefaultPaths{
		File:       filepath.Join(dir, "markers.json"),
		SystemFile: filepath.Join(dir, "system.json"),
		Dir:        markersDir,
	}.Resolve()

	if len(warnings) != 0 {
		t.Errorf("Resolve() warnings = %v, want none", warnings)
	}

	want := []string{
		filepath.Join(dir, "markers.json"),
		filepath.Join(dir, "system.json"),
		filepath.Join(markersDir, "a.json"),
		filepath.Join(markersDir, "b.json"),
	}
	if len(paths) != len(want) {
		t.Fatalf("Resolve() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDefaultPaths_MissingDir(t *testing.T) {
	dir := t.TempDir()

	paths, warnings := DefaultPaths{
		File: filepath.Join(dir, "markers.json"),
		Dir:  filepath.Join(dir, "markers.d"),
	}.Resolve()

	if len(warnings) != 0 {
		t.Errorf("missing directory should not warn, got %v", warnings)
	}
	if len(paths) != 1 {
		t.Errorf("Resolve() = %v, want only the default file", paths)
	}
}

func TestDefaultPaths_DirIsFile(t *testing.T) {
	dir := t.TempDir()
	notDir := filepath.Join(dir, "markers.d")
	writeFile(t, notDir, `{}`)

	_, warnings := DefaultPaths{Dir: notDir}.Resolve()

	if len(warnings) != 1 || !errors.Is(warnings[0], ErrDirUnreadable) {
		t.Errorf("Resolve() warnings = %v, want ErrDirUnreadable", warnings)
	}
}

func TestLoadFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	markersDir := filepath.Join(dir, "markers.d")
	if err := os.Mkdir(markersDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "markers.json"), `{"x": {"mode":"Club","lat":1,"lon":1,"comment":"base"}}`)
	writeFile(t, filepath.Join(markersDir, "10-override.json"), `{"x": {"mode":"Club","lat":1,"lon":1,"comment":"override"}}`)

	set := LoadFiles(DefaultPaths{
		File: filepath.Join(dir, "markers.json"),
		Dir:  markersDir,
	})

	if got := set["x"].String("comment"); got != "override" {
		t.Errorf("comment = %q, want directory files to override", got)
	}
}
