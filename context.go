package pipex

import (
	"io"
	"os"
	"strings"

	"github.com/aledsdavies/pipex/internal/capture"
	"github.com/aledsdavies/pipex/internal/envcase"
)

// execContext is the evaluation-time context threaded through the
// interpreter. It is a plain value type on purpose: every modifier
// evaluates its inner expression against a copy, giving copy-on-write
// semantics for free from Go's struct-and-slice-and-map assignment
// rules rather than an explicit persistent-data-structure package.
type execContext struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	dir        string
	parentDir  string
	dirChanged bool

	env map[string]string

	stdoutCapture *capture.Coordinator
	stderrCapture *capture.Coordinator

	hooks []SpawnHook
}

// newRootContext builds the context for a fresh top-level evaluation:
// inherited stdio, inherited cwd and environment, and two unallocated
// capture coordinators shared by every node in the tree.
func newRootContext() execContext {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return execContext{
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		dir:           cwd,
		env:           environToMap(os.Environ()),
		stdoutCapture: capture.New(),
		stderrCapture: capture.New(),
	}
}

func environToMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[envcase.Normalize(k)] = v
	}
	return m
}

// withEnvSet returns a copy of ctx with key set to value, leaving ctx's
// own map untouched.
func (ctx execContext) withEnvSet(key, value string) execContext {
	cp := make(map[string]string, len(ctx.env)+1)
	for k, v := range ctx.env {
		cp[k] = v
	}
	cp[envcase.Normalize(key)] = value
	ctx.env = cp
	return ctx
}

// withEnvRemoved returns a copy of ctx with key absent.
func (ctx execContext) withEnvRemoved(key string) execContext {
	cp := make(map[string]string, len(ctx.env))
	for k, v := range ctx.env {
		cp[k] = v
	}
	delete(cp, envcase.Normalize(key))
	ctx.env = cp
	return ctx
}

// withFullEnv returns a copy of ctx with its entire environment
// replaced by env (already normalized by the caller).
func (ctx execContext) withFullEnv(env map[string]string) execContext {
	ctx.env = env
	return ctx
}

// withHook returns a copy of ctx with hook appended to the end of the
// spawn-hook list (outermost-first application order falls out of
// appending as modifiers are evaluated top-down).
func (ctx execContext) withHook(hook SpawnHook) execContext {
	next := make([]SpawnHook, len(ctx.hooks), len(ctx.hooks)+1)
	copy(next, ctx.hooks)
	ctx.hooks = append(next, hook)
	return ctx
}

// withDir returns a copy of ctx with its working directory overridden.
// parentDir captures ctx.dir as it stood immediately before this
// override, so a relative, path-qualified program name can still be
// resolved against the directory the caller was actually in rather than
// the one the child is about to start in.
func (ctx execContext) withDir(path string) execContext {
	ctx.parentDir = ctx.dir
	ctx.dir = path
	ctx.dirChanged = true
	return ctx
}

// envSlice renders ctx.env as an exec.Cmd-style "K=V" slice.
func (ctx execContext) envSlice() []string {
	out := make([]string, 0, len(ctx.env))
	for k, v := range ctx.env {
		out = append(out, k+"="+v)
	}
	return out
}
