package pipex

import "os"

// fileRef is the payload behind FileRef: a caller-owned *os.File the
// library will use for a redirect but never closes itself.
type fileRef struct {
	f *os.File
}

// FileRef wraps an already-open file for use with StdinFile, StdoutFile,
// or StderrFile. The caller retains ownership and must close it once the
// expression using it has finished running.
type FileRef struct {
	ref *fileRef
}

// NewFileRef wraps f for use as a redirect target.
func NewFileRef(f *os.File) FileRef {
	return FileRef{ref: &fileRef{f: f}}
}
