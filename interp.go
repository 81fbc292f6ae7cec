package pipex

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/aledsdavies/pipex/internal/envcase"
	"github.com/aledsdavies/pipex/internal/pathresolve"
	"github.com/aledsdavies/pipex/internal/supervisor"
)

// spawnMu serializes process creation process-wide: held only around
// the os/exec Start call for a single terminal command, never for the
// lifetime of the child, so concurrent pipeline stages spawn without
// serializing on each other beyond that narrow window.
var spawnMu sync.Mutex

// evaluate walks e's tree once, spawning every terminal command it
// reaches and building the mirrored handle tree as it unwinds.
func evaluate(e Expr, ctx execContext) (handleNode, error) {
	switch n := e.node.(type) {
	case *cmdNode:
		return evalCmd(n, ctx)
	case *pipeNode:
		return evalPipe(n, ctx)

	case *stdinBytesNode:
		return evalStdinBytes(n, ctx)
	case *stdinPathNode:
		return evalStdinPath(n, ctx)
	case *stdinFileNode:
		if n.file == nil || n.file.f == nil {
			return nil, &InvalidArgumentError{Modifier: "stdin_file", Msg: "file must not be nil"}
		}
		newCtx := ctx
		newCtx.stdin = n.file.f
		return evaluate(Expr{node: n.inner}, newCtx)
	case *stdinNullNode:
		return evalWithDevNull(n.inner, ctx, devNullStdin)

	case *stdoutPathNode:
		return evalStdoutPath(n, ctx)
	case *stdoutFileNode:
		if n.file == nil || n.file.f == nil {
			return nil, &InvalidArgumentError{Modifier: "stdout_file", Msg: "file must not be nil"}
		}
		newCtx := ctx
		newCtx.stdout = n.file.f
		return evaluate(Expr{node: n.inner}, newCtx)
	case *stdoutNullNode:
		return evalWithDevNull(n.inner, ctx, devNullStdout)
	case *stdoutCaptureNode:
		w, err := ctx.stdoutCapture.WriteEnd()
		if err != nil {
			return nil, &SpawnError{Rendered: renderNode(n), Err: err}
		}
		newCtx := ctx
		newCtx.stdout = w
		return evaluate(Expr{node: n.inner}, newCtx)
	case *stdoutToStderrNode:
		newCtx := ctx
		newCtx.stdout = ctx.stderr
		return evaluate(Expr{node: n.inner}, newCtx)

	case *stderrPathNode:
		return evalStderrPath(n, ctx)
	case *stderrFileNode:
		if n.file == nil || n.file.f == nil {
			return nil, &InvalidArgumentError{Modifier: "stderr_file", Msg: "file must not be nil"}
		}
		newCtx := ctx
		newCtx.stderr = n.file.f
		return evaluate(Expr{node: n.inner}, newCtx)
	case *stderrNullNode:
		return evalWithDevNull(n.inner, ctx, devNullStderr)
	case *stderrCaptureNode:
		w, err := ctx.stderrCapture.WriteEnd()
		if err != nil {
			return nil, &SpawnError{Rendered: renderNode(n), Err: err}
		}
		newCtx := ctx
		newCtx.stderr = w
		return evaluate(Expr{node: n.inner}, newCtx)
	case *stderrToStdoutNode:
		newCtx := ctx
		newCtx.stderr = ctx.stdout
		return evaluate(Expr{node: n.inner}, newCtx)

	case *stdoutStderrSwapNode:
		newCtx := ctx
		newCtx.stdout, newCtx.stderr = ctx.stderr, ctx.stdout
		return evaluate(Expr{node: n.inner}, newCtx)

	case *dirNode:
		newDir := n.path
		if !filepath.IsAbs(newDir) {
			newDir = filepath.Join(ctx.dir, newDir)
		}
		return evaluate(Expr{node: n.inner}, ctx.withDir(newDir))
	case *envNode:
		return evaluate(Expr{node: n.inner}, ctx.withEnvSet(n.key, n.value))
	case *envRemoveNode:
		return evaluate(Expr{node: n.inner}, ctx.withEnvRemoved(n.key))
	case *fullEnvNode:
		return evaluate(Expr{node: n.inner}, ctx.withFullEnv(normalizeEnv(n.env)))

	case *uncheckedNode:
		inner, err := evaluate(Expr{node: n.inner}, ctx)
		if err != nil {
			return nil, err
		}
		return &modHandleNode{inner: inner, unchecked: true}, nil
	case *beforeSpawnNode:
		return evaluate(Expr{node: n.inner}, ctx.withHook(n.hook))
	}
	panic("pipex: evaluate: unhandled node type")
}

func evalCmd(n *cmdNode, ctx execContext) (handleNode, error) {
	if n.prog == "" {
		return nil, &InvalidArgumentError{Modifier: "cmd", Msg: "program name must not be empty"}
	}

	prog := pathresolve.Program(n.prog, ctx.parentDir, ctx.dirChanged)
	argv := append([]string{prog}, n.args...)
	opts := SpawnOptions{NewProcessGroup: true}
	for _, hook := range ctx.hooks {
		argv = hook(argv, &opts)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = ctx.dir
	cmd.Env = ctx.envSlice()
	cmd.Stdin = ctx.stdin
	cmd.Stdout = ctx.stdout
	cmd.Stderr = ctx.stderr

	spawnMu.Lock()
	sup, err := supervisor.Start(cmd, opts.NewProcessGroup)
	spawnMu.Unlock()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) || isENOENT(err) {
			return nil, newProgramNotFoundError(n.prog, err)
		}
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}
	return &cmdHandleNode{sup: sup}, nil
}

func isENOENT(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ENOENT
}

func evalPipe(n *pipeNode, ctx execContext) (handleNode, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}

	leftCtx := ctx
	leftCtx.stdout = w
	leftHandle, err := evaluate(Expr{node: n.left}, leftCtx)
	_ = w.Close()
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	rightCtx := ctx
	rightCtx.stdin = r
	rightHandle, err := evaluate(Expr{node: n.right}, rightCtx)
	_ = r.Close()
	if err != nil {
		_ = leftHandle.kill()
		return nil, err
	}

	return &pipeHandleNode{left: leftHandle, right: rightHandle}, nil
}

func evalStdinBytes(n *stdinBytesNode, ctx execContext) (handleNode, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}
	newCtx := ctx
	newCtx.stdin = r
	inner, err := evaluate(Expr{node: n.inner}, newCtx)
	_ = r.Close()
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	data := n.data
	writerDone := make(chan error, 1)
	go func() {
		_, werr := w.Write(data)
		cerr := w.Close()
		writerDone <- firstRealIOError(werr, cerr)
	}()

	return &modHandleNode{
		inner:       inner,
		stdinWriter: func() error { return <-writerDone },
	}, nil
}

// firstRealIOError returns the first of werr/cerr that is not a
// broken-pipe signal from a reader that exited before consuming all of
// stdin, which StdinBytes's contract absorbs silently.
func firstRealIOError(errs ...error) error {
	for _, err := range errs {
		if err == nil || isBrokenPipe(err) {
			continue
		}
		return err
	}
	return nil
}

func isBrokenPipe(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE
	}
	return errors.Is(err, os.ErrClosed)
}

func evalStdinPath(n *stdinPathNode, ctx execContext) (handleNode, error) {
	f, err := os.Open(n.path)
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}
	defer f.Close()
	newCtx := ctx
	newCtx.stdin = f
	return evaluate(Expr{node: n.inner}, newCtx)
}

func evalStdoutPath(n *stdoutPathNode, ctx execContext) (handleNode, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if n.append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(n.path, flags, 0o644)
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}
	defer f.Close()
	newCtx := ctx
	newCtx.stdout = f
	return evaluate(Expr{node: n.inner}, newCtx)
}

func evalStderrPath(n *stderrPathNode, ctx execContext) (handleNode, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if n.append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(n.path, flags, 0o644)
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(n), Err: err}
	}
	defer f.Close()
	newCtx := ctx
	newCtx.stderr = f
	return evaluate(Expr{node: n.inner}, newCtx)
}

type devNullTarget int

const (
	devNullStdin devNullTarget = iota
	devNullStdout
	devNullStderr
)

func evalWithDevNull(inner exprNode, ctx execContext, target devNullTarget) (handleNode, error) {
	f, err := os.OpenFile(os.DevNull, devNullFlags(target), 0)
	if err != nil {
		return nil, &SpawnError{Rendered: renderNode(inner), Err: err}
	}
	defer f.Close()
	newCtx := ctx
	switch target {
	case devNullStdin:
		newCtx.stdin = f
	case devNullStdout:
		newCtx.stdout = f
	case devNullStderr:
		newCtx.stderr = f
	}
	return evaluate(Expr{node: inner}, newCtx)
}

func devNullFlags(target devNullTarget) int {
	if target == devNullStdin {
		return os.O_RDONLY
	}
	return os.O_WRONLY
}

func normalizeEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[envcase.Normalize(k)] = v
	}
	return out
}
