package pipex

// Expr is an immutable expression tree describing a command or a
// composition of commands with redirections, environment edits, working
// directory overrides, and status-checking policy.
//
// Expr values are cheap to copy and share: a sub-expression may appear
// under more than one parent, and evaluating the same Expr twice produces
// two independent process trees with independent side effects.
type Expr struct {
	node exprNode
}

// exprNode is the closed sum of expression kinds. The interpreter in
// interp.go switches over it exhaustively; new kinds are added here and
// nowhere else needs to know about the set being closed.
type exprNode interface {
	isExprNode()
}

// SpawnHook is a caller-supplied callback invoked just before a child is
// spawned. It may append arguments and request spawn options; the hook
// receives and returns argv so it can also rewrite the program name.
type SpawnHook func(argv []string, opts *SpawnOptions) []string

// SpawnOptions carries spawn-time settings a hook may request. It is
// initialized with NewProcessGroup already true before any hook runs.
type SpawnOptions struct {
	// NewProcessGroup controls whether the child is placed in its own
	// process group for termination purposes (Unix only; ignored on
	// Windows). Defaults to true, so Kill can also reach descendants the
	// child spawns; a hook may set it false to leave the child in its
	// caller's group instead, for example to share job control with it.
	NewProcessGroup bool
}

// --- terminal ---

type cmdNode struct {
	prog string
	args []string
}

func (*cmdNode) isExprNode() {}

// Cmd returns an expression for running program with the given
// arguments. It is the sole entry point for building a new expression.
func Cmd(program string, args ...string) Expr {
	return Expr{node: &cmdNode{prog: program, args: append([]string(nil), args...)}}
}

// --- composition ---

type pipeNode struct {
	left, right exprNode
}

func (*pipeNode) isExprNode() {}

// Pipe composes e | right: right's stdin is e's stdout.
func (e Expr) Pipe(right Expr) Expr {
	return Expr{node: &pipeNode{left: e.node, right: right.node}}
}

// --- stdin ---

type stdinBytesNode struct {
	inner exprNode
	data  []byte
}

func (*stdinBytesNode) isExprNode() {}

// StdinBytes feeds buf to the expression's stdin. A writer goroutine
// copies buf and silently absorbs a broken-pipe error from an early exit.
func (e Expr) StdinBytes(buf []byte) Expr {
	return Expr{node: &stdinBytesNode{inner: e.node, data: append([]byte(nil), buf...)}}
}

type stdinPathNode struct {
	inner exprNode
	path  string
}

func (*stdinPathNode) isExprNode() {}

// StdinPath opens path for reading and uses it as stdin.
func (e Expr) StdinPath(path string) Expr {
	return Expr{node: &stdinPathNode{inner: e.node, path: path}}
}

type stdinFileNode struct {
	inner exprNode
	file  *fileRef
}

func (*stdinFileNode) isExprNode() {}

// StdinFile uses an already-open file as stdin without taking ownership
// of it (the caller remains responsible for closing it).
func (e Expr) StdinFile(f FileRef) Expr {
	return Expr{node: &stdinFileNode{inner: e.node, file: f.ref}}
}

type stdinNullNode struct{ inner exprNode }

func (*stdinNullNode) isExprNode() {}

// StdinNull connects stdin to the OS null device.
func (e Expr) StdinNull() Expr {
	return Expr{node: &stdinNullNode{inner: e.node}}
}

// --- stdout ---

type stdoutPathNode struct {
	inner  exprNode
	path   string
	append bool
}

func (*stdoutPathNode) isExprNode() {}

// StdoutPath truncates (or creates) path and uses it as stdout.
func (e Expr) StdoutPath(path string) Expr {
	return Expr{node: &stdoutPathNode{inner: e.node, path: path}}
}

// StdoutPathAppend opens path for appending and uses it as stdout.
func (e Expr) StdoutPathAppend(path string) Expr {
	return Expr{node: &stdoutPathNode{inner: e.node, path: path, append: true}}
}

type stdoutFileNode struct {
	inner exprNode
	file  *fileRef
}

func (*stdoutFileNode) isExprNode() {}

// StdoutFile uses an already-open file as stdout without taking
// ownership of it.
func (e Expr) StdoutFile(f FileRef) Expr {
	return Expr{node: &stdoutFileNode{inner: e.node, file: f.ref}}
}

type stdoutNullNode struct{ inner exprNode }

func (*stdoutNullNode) isExprNode() {}

// StdoutNull connects stdout to the OS null device.
func (e Expr) StdoutNull() Expr {
	return Expr{node: &stdoutNullNode{inner: e.node}}
}

type stdoutCaptureNode struct{ inner exprNode }

func (*stdoutCaptureNode) isExprNode() {}

// StdoutCapture requests that stdout be captured into Output.Stdout
// instead of inherited.
func (e Expr) StdoutCapture() Expr {
	return Expr{node: &stdoutCaptureNode{inner: e.node}}
}

type stdoutToStderrNode struct{ inner exprNode }

func (*stdoutToStderrNode) isExprNode() {}

// StdoutToStderr redirects stdout to wherever stderr currently points.
func (e Expr) StdoutToStderr() Expr {
	return Expr{node: &stdoutToStderrNode{inner: e.node}}
}

// --- stderr ---

type stderrPathNode struct {
	inner  exprNode
	path   string
	append bool
}

func (*stderrPathNode) isExprNode() {}

// StderrPath truncates (or creates) path and uses it as stderr.
func (e Expr) StderrPath(path string) Expr {
	return Expr{node: &stderrPathNode{inner: e.node, path: path}}
}

// StderrPathAppend opens path for appending and uses it as stderr.
func (e Expr) StderrPathAppend(path string) Expr {
	return Expr{node: &stderrPathNode{inner: e.node, path: path, append: true}}
}

type stderrFileNode struct {
	inner exprNode
	file  *fileRef
}

func (*stderrFileNode) isExprNode() {}

// StderrFile uses an already-open file as stderr without taking
// ownership of it.
func (e Expr) StderrFile(f FileRef) Expr {
	return Expr{node: &stderrFileNode{inner: e.node, file: f.ref}}
}

type stderrNullNode struct{ inner exprNode }

func (*stderrNullNode) isExprNode() {}

// StderrNull connects stderr to the OS null device.
func (e Expr) StderrNull() Expr {
	return Expr{node: &stderrNullNode{inner: e.node}}
}

type stderrCaptureNode struct{ inner exprNode }

func (*stderrCaptureNode) isExprNode() {}

// StderrCapture requests that stderr be captured into Output.Stderr
// instead of inherited.
func (e Expr) StderrCapture() Expr {
	return Expr{node: &stderrCaptureNode{inner: e.node}}
}

type stderrToStdoutNode struct{ inner exprNode }

func (*stderrToStdoutNode) isExprNode() {}

// StderrToStdout redirects stderr to wherever stdout currently points.
func (e Expr) StderrToStdout() Expr {
	return Expr{node: &stderrToStdoutNode{inner: e.node}}
}

// --- swap ---

type stdoutStderrSwapNode struct{ inner exprNode }

func (*stdoutStderrSwapNode) isExprNode() {}

// StdoutStderrSwap atomically swaps the stdout and stderr slots of the
// inner context, for the scope of the inner expression only.
func (e Expr) StdoutStderrSwap() Expr {
	return Expr{node: &stdoutStderrSwapNode{inner: e.node}}
}

// --- environment ---

type dirNode struct {
	inner exprNode
	path  string
}

func (*dirNode) isExprNode() {}

// Dir overrides the working directory for the inner expression.
func (e Expr) Dir(path string) Expr {
	return Expr{node: &dirNode{inner: e.node, path: path}}
}

type envNode struct {
	inner      exprNode
	key, value string
}

func (*envNode) isExprNode() {}

// Env sets a single environment variable for the inner expression,
// copy-on-write against the inherited environment.
func (e Expr) Env(key, value string) Expr {
	return Expr{node: &envNode{inner: e.node, key: key, value: value}}
}

type envRemoveNode struct {
	inner exprNode
	key   string
}

func (*envRemoveNode) isExprNode() {}

// EnvRemove removes a single environment variable for the inner
// expression. Removing an absent key is a no-op.
func (e Expr) EnvRemove(key string) Expr {
	return Expr{node: &envRemoveNode{inner: e.node, key: key}}
}

type fullEnvNode struct {
	inner exprNode
	env   map[string]string
}

func (*fullEnvNode) isExprNode() {}

// FullEnv replaces the entire environment for the inner expression.
func (e Expr) FullEnv(env map[string]string) Expr {
	cp := make(map[string]string, len(env))
	for k, v := range env {
		cp[k] = v
	}
	return Expr{node: &fullEnvNode{inner: e.node, env: cp}}
}

// --- policy ---

type uncheckedNode struct{ inner exprNode }

func (*uncheckedNode) isExprNode() {}

// Unchecked suppresses status-error surfacing for the inner expression's
// status without changing its numeric exit code.
func (e Expr) Unchecked() Expr {
	return Expr{node: &uncheckedNode{inner: e.node}}
}

type beforeSpawnNode struct {
	inner exprNode
	hook  SpawnHook
}

func (*beforeSpawnNode) isExprNode() {}

// BeforeSpawn appends a spawn hook, invoked outermost-first just before
// every terminal command beneath the inner expression is spawned.
func (e Expr) BeforeSpawn(hook SpawnHook) Expr {
	return Expr{node: &beforeSpawnNode{inner: e.node, hook: hook}}
}
