package pipex

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// String renders e as the builder call chain that produced it. Parse
// reconstructs an equal Expr from this text for every modifier that
// carries only plain data; FileRef- and BeforeSpawn-bearing nodes render
// opaquely and are documented as non-round-trippable, since a live file
// descriptor or closure has no stable textual form.
func (e Expr) String() string {
	return renderNode(e.node)
}

func renderNode(n exprNode) string {
	switch v := n.(type) {
	case *cmdNode:
		args := append([]string{v.prog}, v.args...)
		return "cmd(" + quoteJoin(args) + ")"
	case *pipeNode:
		return renderNode(v.left) + ".pipe(" + renderNode(v.right) + ")"

	case *stdinBytesNode:
		return call1(v.inner, "stdin_bytes", string(v.data))
	case *stdinPathNode:
		return call1(v.inner, "stdin_path", v.path)
	case *stdinFileNode:
		return renderNode(v.inner) + ".stdin_file(<opaque file>)"
	case *stdinNullNode:
		return call0(v.inner, "stdin_null")

	case *stdoutPathNode:
		if v.append {
			return call1(v.inner, "stdout_path_append", v.path)
		}
		return call1(v.inner, "stdout_path", v.path)
	case *stdoutFileNode:
		return renderNode(v.inner) + ".stdout_file(<opaque file>)"
	case *stdoutNullNode:
		return call0(v.inner, "stdout_null")
	case *stdoutCaptureNode:
		return call0(v.inner, "stdout_capture")
	case *stdoutToStderrNode:
		return call0(v.inner, "stdout_to_stderr")

	case *stderrPathNode:
		if v.append {
			return call1(v.inner, "stderr_path_append", v.path)
		}
		return call1(v.inner, "stderr_path", v.path)
	case *stderrFileNode:
		return renderNode(v.inner) + ".stderr_file(<opaque file>)"
	case *stderrNullNode:
		return call0(v.inner, "stderr_null")
	case *stderrCaptureNode:
		return call0(v.inner, "stderr_capture")
	case *stderrToStdoutNode:
		return call0(v.inner, "stderr_to_stdout")

	case *stdoutStderrSwapNode:
		return call0(v.inner, "stdout_stderr_swap")

	case *dirNode:
		return call1(v.inner, "dir", v.path)
	case *envNode:
		return call1(v.inner, "env", v.key, v.value)
	case *envRemoveNode:
		return call1(v.inner, "env_remove", v.key)
	case *fullEnvNode:
		keys := make([]string, 0, len(v.env))
		for k := range v.env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]string, 0, len(keys)*2)
		for _, k := range keys {
			args = append(args, k, v.env[k])
		}
		return call1(v.inner, "full_env", args...)

	case *uncheckedNode:
		return call0(v.inner, "unchecked")
	case *beforeSpawnNode:
		return renderNode(v.inner) + ".before_spawn(<opaque hook>)"
	}
	panic(fmt.Sprintf("pipex: renderNode: unhandled node type %T", n))
}

func call0(inner exprNode, method string) string {
	return renderNode(inner) + "." + method + "()"
}

func call1(inner exprNode, method string, args ...string) string {
	return renderNode(inner) + "." + method + "(" + quoteJoin(args) + ")"
}

func quoteJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = strconv.Quote(a)
	}
	return strings.Join(quoted, ", ")
}

// Parse reconstructs an Expr from text produced by Expr.String. It
// rejects any expression that rendered with an opaque placeholder
// (stdin_file, stdout_file, stderr_file, before_spawn), since those
// carry values Parse cannot reconstruct.
func Parse(s string) (Expr, error) {
	p := &parser{s: s}
	e, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	p.skipSpace()
	if p.i != len(p.s) {
		return Expr{}, fmt.Errorf("pipex: Parse: unexpected trailing input at byte %d", p.i)
	}
	return e, nil
}

type parser struct {
	s string
	i int
}

func (p *parser) skipSpace() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t' || p.s[p.i] == '\n') {
		p.i++
	}
}

func (p *parser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.s[p.i:], tok) {
		p.i += len(tok)
		return true
	}
	return false
}

func (p *parser) parseIdent() (string, error) {
	p.skipSpace()
	start := p.i
	for p.i < len(p.s) {
		c := p.s[p.i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.i++
			continue
		}
		break
	}
	if p.i == start {
		return "", fmt.Errorf("pipex: Parse: expected identifier at byte %d", start)
	}
	return p.s[start:p.i], nil
}

func (p *parser) parseStringLiteral() (string, error) {
	p.skipSpace()
	if p.i >= len(p.s) || p.s[p.i] != '"' {
		return "", fmt.Errorf("pipex: Parse: expected string literal at byte %d", p.i)
	}
	lit, err := strconv.QuotedPrefix(p.s[p.i:])
	if err != nil {
		return "", fmt.Errorf("pipex: Parse: malformed string literal at byte %d: %w", p.i, err)
	}
	p.i += len(lit)
	return strconv.Unquote(lit)
}

// parseStringList parses a comma-separated list of string literals,
// stopping at the first non-string token (the closing ")").
func (p *parser) parseStringList() ([]string, error) {
	var out []string
	p.skipSpace()
	if p.i < len(p.s) && p.s[p.i] == ')' {
		return out, nil
	}
	for {
		s, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		if !p.consume(",") {
			break
		}
	}
	return out, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	name, err := p.parseIdent()
	if err != nil {
		return Expr{}, err
	}
	if name != "cmd" {
		return Expr{}, fmt.Errorf("pipex: Parse: expected cmd(...), got %q", name)
	}
	if !p.consume("(") {
		return Expr{}, fmt.Errorf("pipex: Parse: expected ( after cmd")
	}
	args, err := p.parseStringList()
	if err != nil {
		return Expr{}, err
	}
	if !p.consume(")") {
		return Expr{}, fmt.Errorf("pipex: Parse: expected ) closing cmd(...)")
	}
	if len(args) == 0 {
		return Expr{}, fmt.Errorf("pipex: Parse: cmd() requires a program name")
	}
	return Cmd(args[0], args[1:]...), nil
}

func (p *parser) parseExpr() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return Expr{}, err
	}
	for {
		p.skipSpace()
		if !p.consume(".") {
			break
		}
		name, err := p.parseIdent()
		if err != nil {
			return Expr{}, err
		}
		if !p.consume("(") {
			return Expr{}, fmt.Errorf("pipex: Parse: expected ( after %s", name)
		}
		e, err = p.applyMethod(e, name)
		if err != nil {
			return Expr{}, err
		}
		if !p.consume(")") {
			return Expr{}, fmt.Errorf("pipex: Parse: expected ) closing %s(...)", name)
		}
	}
	return e, nil
}

func (p *parser) applyMethod(e Expr, name string) (Expr, error) {
	switch name {
	case "pipe":
		right, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		return e.Pipe(right), nil

	case "stdin_bytes":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StdinBytes([]byte(args[0])), nil
	case "stdin_path":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StdinPath(args[0]), nil
	case "stdin_null":
		return e.StdinNull(), nil

	case "stdout_path":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StdoutPath(args[0]), nil
	case "stdout_path_append":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StdoutPathAppend(args[0]), nil
	case "stdout_null":
		return e.StdoutNull(), nil
	case "stdout_capture":
		return e.StdoutCapture(), nil
	case "stdout_to_stderr":
		return e.StdoutToStderr(), nil

	case "stderr_path":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StderrPath(args[0]), nil
	case "stderr_path_append":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.StderrPathAppend(args[0]), nil
	case "stderr_null":
		return e.StderrNull(), nil
	case "stderr_capture":
		return e.StderrCapture(), nil
	case "stderr_to_stdout":
		return e.StderrToStdout(), nil

	case "stdout_stderr_swap":
		return e.StdoutStderrSwap(), nil

	case "dir":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.Dir(args[0]), nil
	case "env":
		args, err := p.requireArgs(name, 2)
		if err != nil {
			return Expr{}, err
		}
		return e.Env(args[0], args[1]), nil
	case "env_remove":
		args, err := p.requireArgs(name, 1)
		if err != nil {
			return Expr{}, err
		}
		return e.EnvRemove(args[0]), nil
	case "full_env":
		args, err := p.parseStringList()
		if err != nil {
			return Expr{}, err
		}
		if len(args)%2 != 0 {
			return Expr{}, fmt.Errorf("pipex: Parse: full_env requires an even number of arguments")
		}
		m := make(map[string]string, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			m[args[i]] = args[i+1]
		}
		return e.FullEnv(m), nil

	case "unchecked":
		return e.Unchecked(), nil

	case "stdin_file", "stdout_file", "stderr_file", "before_spawn":
		return Expr{}, fmt.Errorf("pipex: Parse: %s(...) is opaque and cannot be parsed", name)

	default:
		return Expr{}, fmt.Errorf("pipex: Parse: unknown method %q", name)
	}
}

func (p *parser) requireArgs(method string, n int) ([]string, error) {
	args, err := p.parseStringList()
	if err != nil {
		return nil, err
	}
	if len(args) != n {
		return nil, fmt.Errorf("pipex: Parse: %s expects %d argument(s), got %d", method, n, len(args))
	}
	return args, nil
}
