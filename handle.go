package pipex

import (
	"github.com/aledsdavies/pipex/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

// handleNode is the closed sum of handle-tree kinds, mirroring exprNode.
// Unlike exprNode, most modifier kinds get no handle node of their own:
// only StdinBytes (a writer to join) and Unchecked (a checked-flag flip)
// change wait behavior, and only they are wrapped in a modHandleNode.
type handleNode interface {
	wait() (Status, error)
	tryWait() (Status, bool, error)
	kill() error
	pids() []int
}

// Handle is a running (or already-finished) evaluation. It is returned
// by Expr.Start and is also embedded in the value returned by
// Expr.Reader.
type Handle struct {
	node handleNode

	// stdoutCap/stderrCap are nil when this Handle does not own capture
	// joining itself (the Reader variant joins stdout manually and owns
	// only the stderr coordinator, if any).
	stdoutCap captureJoiner
	stderrCap captureJoiner

	rendered string
}

// captureJoiner is the minimal surface Handle needs from
// internal/capture, kept as an interface here so handle.go does not
// need to import the concrete coordinator type directly.
type captureJoiner interface {
	JoinDrain() ([]byte, bool, error)
}

// Wait blocks until every terminal command has exited, joins any
// capture drains, and returns the aggregate Output. If the final status
// is checked and non-zero, the error is a *StatusError wrapping Output.
func (h *Handle) Wait() (Output, error) {
	st, err := h.node.wait()
	if err != nil {
		return Output{}, err
	}
	out := Output{Status: st}

	var joinErr error
	if h.stdoutCap != nil {
		if data, ok, jerr := h.stdoutCap.JoinDrain(); ok {
			out.Stdout, out.StdoutCaptured = data, true
			if jerr != nil {
				joinErr = jerr
			}
		}
	}
	if h.stderrCap != nil {
		if data, ok, jerr := h.stderrCap.JoinDrain(); ok {
			out.Stderr, out.StderrCaptured = data, true
			if jerr != nil && joinErr == nil {
				joinErr = jerr
			}
		}
	}
	if joinErr != nil {
		return out, joinErr
	}
	if out.Status.failed() {
		return out, &StatusError{Rendered: h.rendered, Output: out}
	}
	return out, nil
}

// TryWait behaves like Wait but never blocks: ok is false while any
// terminal command is still running.
func (h *Handle) TryWait() (Output, bool, error) {
	st, ok, err := h.node.tryWait()
	if err != nil || !ok {
		return Output{}, ok, err
	}
	out := Output{Status: st}

	var joinErr error
	if h.stdoutCap != nil {
		if data, captured, jerr := h.stdoutCap.JoinDrain(); captured {
			out.Stdout, out.StdoutCaptured = data, true
			if jerr != nil {
				joinErr = jerr
			}
		}
	}
	if h.stderrCap != nil {
		if data, captured, jerr := h.stderrCap.JoinDrain(); captured {
			out.Stderr, out.StderrCaptured = data, true
			if jerr != nil && joinErr == nil {
				joinErr = jerr
			}
		}
	}
	if joinErr != nil {
		return out, true, joinErr
	}
	if out.Status.failed() {
		return out, true, &StatusError{Rendered: h.rendered, Output: out}
	}
	return out, true, nil
}

// Kill sends forced termination to every terminal command beneath this
// handle and waits for each to be reaped. It does not join capture
// drains, so it returns in bounded time even when a still-running
// descendant holds the write end of a capture pipe open.
func (h *Handle) Kill() error {
	return h.node.kill()
}

// Pids returns the process ids of every terminal command beneath this
// handle, in left-to-right pipeline order.
func (h *Handle) Pids() []int {
	return h.node.pids()
}

// --- handleNode implementations ---

type cmdHandleNode struct {
	sup *supervisor.Supervisor
}

func (n *cmdHandleNode) wait() (Status, error) {
	st, err := n.sup.Wait()
	if err != nil {
		return Status{}, err
	}
	return Status{Code: st.Code, Checked: true}, nil
}

func (n *cmdHandleNode) tryWait() (Status, bool, error) {
	st, ok, err := n.sup.TryWait()
	if err != nil || !ok {
		return Status{}, ok, err
	}
	return Status{Code: st.Code, Checked: true}, true, nil
}

func (n *cmdHandleNode) kill() error {
	return n.sup.Kill()
}

func (n *cmdHandleNode) pids() []int {
	return []int{n.sup.Pid()}
}

type pipeHandleNode struct {
	left, right handleNode
}

func (n *pipeHandleNode) wait() (Status, error) {
	var ls, rs Status
	var g errgroup.Group
	g.Go(func() error {
		s, err := n.left.wait()
		ls = s
		return err
	})
	g.Go(func() error {
		s, err := n.right.wait()
		rs = s
		return err
	})
	if err := g.Wait(); err != nil {
		return Status{}, err
	}
	return combinePipelineStatus(ls, rs), nil
}

func (n *pipeHandleNode) tryWait() (Status, bool, error) {
	ls, lok, lerr := n.left.tryWait()
	if lerr != nil {
		return Status{}, false, lerr
	}
	if !lok {
		return Status{}, false, nil
	}
	rs, rok, rerr := n.right.tryWait()
	if rerr != nil {
		return Status{}, false, rerr
	}
	if !rok {
		return Status{}, false, nil
	}
	return combinePipelineStatus(ls, rs), true, nil
}

func (n *pipeHandleNode) kill() error {
	var g errgroup.Group
	g.Go(n.left.kill)
	g.Go(n.right.kill)
	return g.Wait()
}

func (n *pipeHandleNode) pids() []int {
	return append(n.left.pids(), n.right.pids()...)
}

// modHandleNode is built only for the two modifier kinds that affect
// wait behavior; every other modifier returns its inner handle as is.
// unchecked flips the checked bit on the way out, and
// stdinWriter (non-nil only for StdinBytes) is joined once the inner
// expression has exited, absorbing a broken-pipe error from an early
// reader exit.
type modHandleNode struct {
	inner       handleNode
	unchecked   bool
	stdinWriter func() error
}

func (n *modHandleNode) joinWriter() {
	if n.stdinWriter != nil {
		_ = n.stdinWriter()
	}
}

func (n *modHandleNode) wait() (Status, error) {
	st, err := n.inner.wait()
	if err != nil {
		return Status{}, err
	}
	n.joinWriter()
	if n.unchecked {
		st.Checked = false
	}
	return st, nil
}

func (n *modHandleNode) tryWait() (Status, bool, error) {
	st, ok, err := n.inner.tryWait()
	if err != nil || !ok {
		return st, ok, err
	}
	n.joinWriter()
	if n.unchecked {
		st.Checked = false
	}
	return st, true, nil
}

func (n *modHandleNode) kill() error {
	return n.inner.kill()
}

func (n *modHandleNode) pids() []int {
	return n.inner.pids()
}
