package extract

import (
	"os"
	"testing"
)

func TestStageWritesAndCleansUp(t *testing.T) {
	s := NewCookieStager(t.TempDir())
	path, cleanup, err := s.Stage("# Netscape HTTP Cookie File\nexample.com\tTRUE\t/\tFALSE\t0\tsid\tabc")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("staged file unreadable: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("staged file empty")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("staged file survived cleanup: %v", err)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	s := NewCookieStager(t.TempDir())
	_, cleanup, err := s.Stage("blob")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("first cleanup: %v", err)
	}
	// An externally removed file must not turn cleanup into an error.
	if err := cleanup(); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
}

func TestStageFailsOnMissingDir(t *testing.T) {
	s := NewCookieStager(t.TempDir() + "/does-not-exist")
	if _, _, err := s.Stage("blob"); err == nil {
		t.Fatal("expected error for missing staging dir")
	}
}
