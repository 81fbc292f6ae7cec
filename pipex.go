// Package pipex builds and runs trees of OS processes from an immutable
// expression value: a single command, a pipeline of commands, or either
// wrapped in redirection, environment, and status-checking modifiers.
//
// An Expr describes what to run without running anything; Run, Read,
// Start, and Reader each evaluate it, spawning every terminal command
// the tree reaches in one downward pass.
package pipex

// Run evaluates e and blocks until every terminal command has exited.
// The returned error is a *StatusError when the final status is
// checked and non-zero; stdio not redirected by e is inherited from the
// calling process.
func (e Expr) Run() (Output, error) {
	h, err := e.Start()
	if err != nil {
		return Output{}, err
	}
	return h.Wait()
}

// Read evaluates e with an implicit StdoutCapture, waits for it to
// finish, and returns its standard output decoded as text: universal
// newlines, with exactly one trailing newline stripped.
func (e Expr) Read() (string, error) {
	out, err := e.StdoutCapture().Run()
	if err != nil {
		return "", err
	}
	return decodeTrim(out.Stdout), nil
}

// Start evaluates e and returns immediately with a Handle for the
// running (or already-finished, for a trivially fast command) process
// tree. Capture coordinators allocated anywhere in the tree begin
// draining as soon as evaluation completes.
func (e Expr) Start() (*Handle, error) {
	ctx := newRootContext()
	node, err := evaluate(e, ctx)
	if err != nil {
		return nil, err
	}
	_ = ctx.stdoutCapture.CloseWrite()
	_ = ctx.stderrCapture.CloseWrite()
	ctx.stdoutCapture.StartDrain()
	ctx.stderrCapture.StartDrain()
	return &Handle{
		node:      node,
		stdoutCap: ctx.stdoutCapture,
		stderrCap: ctx.stderrCapture,
		rendered:  renderNode(e.node),
	}, nil
}
