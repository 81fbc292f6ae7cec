package pipex

// Status is a numeric exit code paired with whether it is subject to
// status-error checking. Checked is false beneath an Unchecked modifier;
// a pipeline reports one of its two sides' statuses unchanged, chosen by
// combinePipelineStatus.
type Status struct {
	Code    int
	Checked bool
}

// failed reports whether this status would raise a StatusError if
// surfaced as the final result of an evaluation.
func (s Status) failed() bool {
	return s.Checked && s.Code != 0
}

// Output is the result of waiting on a Handle: the final status, plus
// captured stdout/stderr when the expression requested capture.
type Output struct {
	Status Status

	Stdout         []byte
	StdoutCaptured bool

	Stderr         []byte
	StderrCaptured bool
}

// combinePipelineStatus picks the status a pipeline as a whole reports:
// the rightmost checked non-zero status wins, then the leftmost checked
// non-zero status, then a non-zero unchecked right status, then the
// left status.
func combinePipelineStatus(left, right Status) Status {
	if right.Checked && right.Code != 0 {
		return right
	}
	if left.Checked && left.Code != 0 {
		return left
	}
	if right.Code != 0 {
		return right
	}
	return left
}
