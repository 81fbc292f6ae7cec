package pipex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// nodeCmpOpts allows cmp to walk into every plain-data exprNode's
// unexported fields. File- and hook-bearing nodes are deliberately left
// out: they carry a live *os.File or closure with no structural
// definition of equality, and String/Parse already document them as
// non-round-trippable.
var nodeCmpOpts = cmp.AllowUnexported(
	cmdNode{},
	pipeNode{},
	stdinBytesNode{},
	stdinPathNode{},
	stdinNullNode{},
	stdoutPathNode{},
	stdoutNullNode{},
	stdoutCaptureNode{},
	stdoutToStderrNode{},
	stderrPathNode{},
	stderrNullNode{},
	stderrCaptureNode{},
	stderrToStdoutNode{},
	stdoutStderrSwapNode{},
	dirNode{},
	envNode{},
	envRemoveNode{},
	fullEnvNode{},
	uncheckedNode{},
)

// TestParseRebuildsStructurallyEqualTree verifies that String followed
// by Parse reconstructs the same exprNode tree node-for-node, not merely
// a tree that happens to render back to the same text. A renderer bug
// that lost a field but padded the output with the right characters
// would pass a string-only round trip and fail this one.
func TestParseRebuildsStructurallyEqualTree(t *testing.T) {
	cases := []Expr{
		Cmd("echo", "hello"),
		Cmd("echo", "hello").Pipe(Cmd("tr", "a-z", "A-Z")),
		Cmd("cat").StdinBytes([]byte("seed")),
		Cmd("cat").StdinPath("/tmp/in.txt"),
		Cmd("cat").StdinNull(),
		Cmd("cat").StdoutPath("/tmp/out.txt"),
		Cmd("cat").StdoutPathAppend("/tmp/out.txt"),
		Cmd("cat").StdoutNull(),
		Cmd("cat").StdoutCapture(),
		Cmd("cat").StderrCapture(),
		Cmd("cat").StdoutToStderr(),
		Cmd("cat").StderrToStdout(),
		Cmd("cat").StdoutStderrSwap(),
		Cmd("cat").Dir("/tmp"),
		Cmd("cat").Env("FOO", "bar"),
		Cmd("cat").EnvRemove("FOO"),
		Cmd("cat").FullEnv(map[string]string{"A": "1", "B": "2"}),
		Cmd("false").Unchecked(),
		Cmd("echo", "a").Pipe(Cmd("echo", "b").Unchecked()).Dir("/tmp").Env("X", "y"),
	}

	for _, want := range cases {
		text := want.String()
		got, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", text, err)
		}
		if diff := cmp.Diff(want.node, got.node, nodeCmpOpts); diff != "" {
			t.Errorf("Parse(%q) rebuilt a different tree (-want +got):\n%s", text, diff)
		}
	}
}
