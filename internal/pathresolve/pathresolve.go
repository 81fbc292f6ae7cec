// Package pathresolve canonicalizes a command's program path when a Dir
// modifier changes the working directory a relative, path-qualified
// program name would otherwise be resolved against.
package pathresolve

import (
	"path/filepath"
	"strings"
)

// Program returns the program name to exec: unchanged unless dirChanged
// is true and prog contains a path separator but is not absolute, in
// which case it is resolved against parentDir (the working directory in
// effect before the Dir modifier was applied) rather than the new
// directory the child will actually start in.
func Program(prog, parentDir string, dirChanged bool) string {
	if !dirChanged {
		return prog
	}
	if filepath.IsAbs(prog) {
		return prog
	}
	if !strings.ContainsAny(prog, `/\`) {
		// A bare name like "sh" is looked up on PATH regardless of Dir;
		// nothing to canonicalize.
		return prog
	}
	return filepath.Join(parentDir, prog)
}
