package pipex

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// StatusError is returned by Run, Read, and Handle.Wait when the final
// status of an evaluation is checked and non-zero.
type StatusError struct {
	Rendered string
	Output   Output
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: exited with status %d", e.Rendered, e.Output.Status.Code)
}

// SpawnError wraps a failure to start a child process that is not a
// missing-program error (permission denied, resource exhaustion, a
// failed os.Pipe call, and similar).
type SpawnError struct {
	Rendered string
	Err      error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: failed to start: %v", e.Rendered, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProgramNotFoundError is returned when the program named by a Cmd node
// cannot be located. Suggestions are populated by a fuzzy match against
// executables on $PATH.
type ProgramNotFoundError struct {
	Program     string
	Err         error
	Suggestions []string
}

func (e *ProgramNotFoundError) Error() string {
	msg := fmt.Sprintf("program not found: %q", e.Program)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *ProgramNotFoundError) Unwrap() error { return e.Err }

// InvalidArgumentError is returned when a modifier is given an argument
// the interpreter rejects before any process is spawned (an empty
// program name, a nil FileRef, and similar).
type InvalidArgumentError struct {
	Modifier string
	Msg      string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Modifier, e.Msg)
}

// newProgramNotFoundError builds a ProgramNotFoundError for program,
// searching $PATH for plausible typo fixes.
func newProgramNotFoundError(program string, cause error) *ProgramNotFoundError {
	return &ProgramNotFoundError{
		Program:     program,
		Err:         cause,
		Suggestions: suggestPrograms(program),
	}
}

// suggestPrograms returns up to three executable names on $PATH that
// fuzzy-match program, most similar first.
func suggestPrograms(program string) []string {
	base := filepath.Base(program)
	candidates := pathExecutables()
	if len(candidates) == 0 {
		return nil
	}

	matches := fuzzy.Find(base, candidates)
	sort.Slice(matches, func(i, j int) bool {
		return fuzzy.RankMatch(base, matches[i]) < fuzzy.RankMatch(base, matches[j])
	})

	seen := make(map[string]bool, 3)
	var out []string
	for _, m := range matches {
		if seen[m] || m == base {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// pathExecutables lists the base names of entries in every $PATH
// directory. Unreadable directories are skipped silently; this is a
// best-effort suggestion feature, not a correctness-critical lookup.
func pathExecutables() []string {
	var names []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			if ent.IsDir() {
				continue
			}
			names = append(names, ent.Name())
		}
	}
	return names
}
