// Command pipexdemo exercises the pipex library end to end: running a
// command, reading its output, piping two commands together, and
// capturing stdout/stderr independently.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aledsdavies/pipex"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pipexdemo:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pipexdemo",
		Short:         "Demonstrate the pipex expression-tree process API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newReadCmd(), newPipeCmd(), newCaptureCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var dir string
	var unchecked bool
	cmd := &cobra.Command{
		Use:   "run -- <program> [args...]",
		Short: "Run a command, inheriting stdio, and print its exit code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := pipex.Cmd(args[0], args[1:]...)
			if dir != "" {
				expr = expr.Dir(dir)
			}
			if unchecked {
				expr = expr.Unchecked()
			}
			out, err := expr.Run()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exit code:", out.Status.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "working directory for the command")
	cmd.Flags().BoolVar(&unchecked, "unchecked", false, "do not treat a non-zero exit as an error")
	return cmd
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read -- <program> [args...]",
		Short: "Run a command and print its captured, trimmed stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := pipex.Cmd(args[0], args[1:]...).Read()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	return cmd
}

func newPipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Pipe two fixed commands (printf | tr) and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			left := pipex.Cmd("printf", "%s", "hello world\n")
			right := pipex.Cmd("tr", "a-z", "A-Z")
			text, err := left.Pipe(right).Read()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	return cmd
}

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture -- <program> [args...]",
		Short: "Run a command capturing stdout and stderr independently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := pipex.Cmd(args[0], args[1:]...).StdoutCapture().StderrCapture().Unchecked()
			out, err := expr.Run()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exit code: %d\n", out.Status.Code)
			fmt.Fprintf(cmd.OutOrStdout(), "stdout: %q\n", strings.TrimSuffix(string(out.Stdout), "\n"))
			fmt.Fprintf(cmd.OutOrStdout(), "stderr: %q\n", strings.TrimSuffix(string(out.Stderr), "\n"))
			return nil
		},
	}
	return cmd
}
