package store

import (
	"path/filepath"
	"testing"

	"github.com/Hyomoto/tinder/tinder"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tinder.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestScriptRoundTrip(t *testing.T) {
	s := openTest(t)
	script := tinder.NewCompiledScript("v1", "OUTPUT")
	script.Lines = append(script.Lines, tinder.Instruction{Kind: tinder.InstrStop})

	if err := s.SaveScript("fp1", script); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	got, err := s.LoadScript("fp1")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got.GrammarVersion != "v1" || len(got.Lines) != 1 {
		t.Fatalf("LoadScript round-trip mismatch: %+v", got)
	}

	if _, err := s.LoadScript("missing"); err != ErrNotFound {
		t.Fatalf("LoadScript(missing): got %v, want ErrNotFound", err)
	}
}

func TestScriptSaveOverwrites(t *testing.T) {
	s := openTest(t)
	first := tinder.NewCompiledScript("v1", "OUTPUT")
	second := tinder.NewCompiledScript("v2", "OUTPUT")

	if err := s.SaveScript("fp", first); err != nil {
		t.Fatalf("SaveScript: %v", err)
	}
	if err := s.SaveScript("fp", second); err != nil {
		t.Fatalf("SaveScript overwrite: %v", err)
	}
	got, err := s.LoadScript("fp")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got.GrammarVersion != "v2" {
		t.Fatalf("LoadScript: got grammar version %q, want v2", got.GrammarVersion)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTest(t)
	env := tinder.NewCrucible(0, nil)
	if err := env.Set("score", tinder.Number(42)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sess := NewSession("fp1")
	sess.PC = 7
	sess.Crucible = env.Snapshot()

	if err := s.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PC != 7 || got.Fingerprint != "fp1" {
		t.Fatalf("Load round-trip mismatch: %+v", got)
	}
	restored := tinder.Restore(got.Crucible, nil)
	v, err := restored.Get("score")
	if err != nil || v.Number != 42 {
		t.Fatalf("restored crucible missing score: %v %v", v, err)
	}

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(sess.ID); err != ErrNotFound {
		t.Fatalf("Load after Delete: got %v, want ErrNotFound", err)
	}
}

func TestSessionRoundTripTableValue(t *testing.T) {
	s := openTest(t)
	env := tinder.NewCrucible(0, nil)
	tbl := tinder.NewTable()
	tbl.Set("name", tinder.String("ava"))
	tbl.Set("level", tinder.Number(3))
	if err := env.Set("hero", tinder.TableOf(tbl)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	sess := NewSession("fp2")
	sess.Crucible = env.Snapshot()
	if err := s.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored := tinder.Restore(got.Crucible, nil)
	v, err := restored.Get("hero")
	if err != nil || v.Kind != tinder.KindTable {
		t.Fatalf("restored crucible missing hero table: %v %v", v, err)
	}
	name, ok := v.Table.Get("name")
	if !ok || name.Str != "ava" {
		t.Fatalf("hero.name = %+v, want ava", name)
	}
	level, ok := v.Table.Get("level")
	if !ok || level.Number != 3 {
		t.Fatalf("hero.level = %+v, want 3", level)
	}
	if got := v.Table.Keys(); len(got) != 2 || got[0] != "name" || got[1] != "level" {
		t.Fatalf("hero keys = %v, want [name level] (insertion order preserved)", got)
	}
}
