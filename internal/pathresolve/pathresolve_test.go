package pathresolve_test

import (
	"path/filepath"
	"testing"

	"github.com/aledsdavies/pipex/internal/pathresolve"
)

func TestProgramUnaffectedWithoutDirChange(t *testing.T) {
	got := pathresolve.Program("./tool", "/parent", false)
	if got != "./tool" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestProgramBareNameUnaffected(t *testing.T) {
	got := pathresolve.Program("sh", "/parent", true)
	if got != "sh" {
		t.Fatalf("got %q, want unchanged PATH lookup name", got)
	}
}

func TestProgramAbsoluteUnaffected(t *testing.T) {
	got := pathresolve.Program("/usr/bin/sh", "/parent", true)
	if got != "/usr/bin/sh" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestProgramRelativeWithSeparatorResolvedAgainstParent(t *testing.T) {
	got := pathresolve.Program("./tool", "/parent", true)
	want := filepath.Join("/parent", "./tool")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestProgramNestedRelativeWithSeparatorResolvedAgainstParent(t *testing.T) {
	got := pathresolve.Program("bin/tool", "/parent", true)
	want := filepath.Join("/parent", "bin/tool")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
