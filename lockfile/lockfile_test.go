package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func newLock() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	h3 := Hash("different")
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Record("messages_ru.properties", map[string]string{"hello": "Hello", "bye": "Bye"}, nil, false)
	lf.Record("messages_de.properties", map[string]string{"hello": "Hello"}, nil, false)

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	targets, keys := lf2.Stats()
	if targets != 2 {
		t.Errorf("targets = %d, want 2", targets)
	}
	if keys != 3 {
		t.Errorf("keys = %d, want 3", keys)
	}
}

func TestSaveEmptyRemovesFile(t *testing.T) {
	dir := t.TempDir()
	lf, _ := Load(dir)
	lf.Record("a.properties", map[string]string{"k": "v"}, nil, false)
	if err := lf.Save(); err != nil {
		t.Fatal(err)
	}

	lf.RemoveTarget("a.properties")
	if err := lf.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Fatalf("empty lock file should be removed, stat err = %v", err)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("version: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load should reject a newer format version")
	}
}

func TestIsStale(t *testing.T) {
	lf := newLock()

	if lf.IsStale("de.properties", "hello", "Hello") {
		t.Error("key without a record must not be stale")
	}

	lf.Record("de.properties", map[string]string{"hello": "Hello"}, nil, false)
	if lf.IsStale("de.properties", "hello", "Hello") {
		t.Error("unchanged source should not be stale")
	}
	if !lf.IsStale("de.properties", "hello", "Hello!") {
		t.Error("changed source should be stale")
	}
	if lf.IsStale("fr.properties", "hello", "Hello!") {
		t.Error("other target has no record")
	}
}

func TestRecordKeepsOldChecksumsUnlessAccepted(t *testing.T) {
	lf := newLock()
	lf.Record("de.properties", map[string]string{"hello": "Hello"}, nil, false)

	lf.Record("de.properties", map[string]string{"hello": "Hello!"}, nil, false)
	if !lf.IsStale("de.properties", "hello", "Hello!") {
		t.Error("re-recording without accept must keep the stale checksum")
	}

	lf.Record("de.properties", map[string]string{"hello": "Hello!"}, nil, true)
	if lf.IsStale("de.properties", "hello", "Hello!") {
		t.Error("accepted source should not be stale")
	}
}

func TestRecordPrunesAndSkipsUntranslated(t *testing.T) {
	lf := newLock()
	lf.Record("de.properties", map[string]string{"a": "A", "b": "B"}, nil, false)

	lf.Record("de.properties", map[string]string{"a": "A", "c": "C"}, map[string]bool{"c": true}, false)
	got := lf.Checksums["de.properties"]
	if len(got) != 1 || got["a"] != Hash("A") {
		t.Fatalf("checksums = %v, want only a", got)
	}

	lf.Record("de.properties", map[string]string{"c": "C"}, map[string]bool{"c": true}, false)
	if _, ok := lf.Checksums["de.properties"]; ok {
		t.Fatal("target without checksums should be dropped")
	}
}

func TestTargets(t *testing.T) {
	lf := newLock()
	lf.Record("b.properties", map[string]string{"k": "v"}, nil, false)
	lf.Record("a.properties", map[string]string{"k": "v"}, nil, false)

	got := lf.Targets()
	if len(got) != 2 || got[0] != "a.properties" || got[1] != "b.properties" {
		t.Errorf("Targets = %v", got)
	}
}

func TestSummary(t *testing.T) {
	lf := newLock()

	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Record("de.properties", map[string]string{"k": "v"}, nil, false)
	if want := "1 targets, 1 keys (de.properties: 1 keys)"; lf.Summary() != want {
		t.Errorf("Summary = %q, want %q", lf.Summary(), want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	lf := newLock()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			target := "messages_" + string(rune('a'+n)) + ".properties"
			lf.Record(target, map[string]string{"key": "value"}, nil, false)
			lf.IsStale(target, "key", "value")
			lf.Stats()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	targets, keys := lf.Stats()
	if targets != 10 || keys != 10 {
		t.Errorf("after concurrent writes: %d targets, %d keys, want 10 and 10", targets, keys)
	}
}
