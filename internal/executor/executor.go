// Package executor runs stage commands in an OS-aware way.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Executor runs shell commands through the platform shell.
type Executor struct {
	DryRun  bool
	Verbose bool
	Shell   string // optional override, e.g. "pwsh" or "sh -e"
}

// Runner is the execution interface stage runners depend on. It allows
// tests to inject fake implementations without running real shell commands.
type Runner interface {
	Execute(ctx context.Context, command string, cwd string, env []string, stdout io.Writer, stderr io.Writer) error
}

// New returns a Runner backed by the real Executor implementation.
func New(dry, verbose bool) Runner {
	return &Executor{DryRun: dry, Verbose: verbose}
}

// ExitError reports a command that ran to completion but exited non-zero.
// Stage-level exit code remapping keys off the Code field.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command exited with code %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// ExitCode extracts the exit code from an error returned by Execute.
func ExitCode(err error) (int, bool) {
	var xe *ExitError
	if errors.As(err, &xe) {
		return xe.Code, true
	}
	return 0, false
}

// Execute runs the given command string through an OS-appropriate shell
// invocation (`bash -c` on Unix, `cmd /C` on Windows). The command is
// sanitized and validated first. env entries are appended to the inherited
// environment. If cwd is non-empty the command runs in that directory.
func (e *Executor) Execute(ctx context.Context, command string, cwd string, env []string, stdout io.Writer, stderr io.Writer) error {
	command, err := validateAndSanitize(command)
	if err != nil {
		return err
	}

	if e.DryRun {
		if e.Verbose {
			_, _ = fmt.Fprintf(stdout, "dry-run: %s\n", command)
		}
		return nil
	}

	shell, args, err := shellInvocation(command, e.Shell)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(shell); err != nil {
		return fmt.Errorf("shell not found in PATH: %s", shell)
	}

	cmd := exec.CommandContext(ctx, shell, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var bout, berr bytes.Buffer
	cmd.Stdout = &bout
	cmd.Stderr = &berr

	runErr := cmd.Run()
	_, _ = stdout.Write(bout.Bytes())
	_, _ = stderr.Write(berr.Bytes())

	if runErr == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(runErr, &ee) && ee.ExitCode() >= 0 {
		return &ExitError{Code: ee.ExitCode(), Stderr: lastLine(berr.String())}
	}
	return fmt.Errorf("command failed: %w (shell=%s args=%q)", runErr, shell, args)
}

// shellInvocation returns the shell executable and the argument list for the
// platform. An override may carry its own flags ("sh -e"); it is split with
// a quote-aware tokenizer.
func shellInvocation(command string, override string) (string, []string, error) {
	if override != "" {
		toks, err := shellquote.Split(override)
		if err != nil || len(toks) == 0 {
			return "", nil, fmt.Errorf("invalid shell override %q", override)
		}
		shell, extra := toks[0], toks[1:]
		switch shell {
		case "pwsh", "powershell":
			return shell, append(extra, "-Command", command), nil
		default:
			return shell, append(extra, "-c", command), nil
		}
	}
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}, nil
	}
	return "bash", []string{"-c", command}, nil
}

// sanitizeCommand normalizes unicode punctuation that editors commonly
// insert (smart quotes, NBSP, zero-width spaces) and drops embedded NULs.
func sanitizeCommand(s string) string {
	r := strings.NewReplacer(
		"‘", "'", // left single quote
		"’", "'", // right single quote
		"“", "\"", // left double quote
		"”", "\"", // right double quote
		" ", " ", // NO-BREAK SPACE
		"​", "", // zero width space
		"‎", "", // left-to-right mark
		"‏", "", // right-to-left mark
	)
	rp := r.Replace(s)
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, rp)
}

// Sanitize normalizes unicode punctuation and strips invisible runes.
// Exported for callers that sanitize pipeline commands at load time.
func Sanitize(s string) string {
	return sanitizeCommand(s)
}

func validateAndSanitize(command string) (string, error) {
	command = sanitizeCommand(command)
	if err := ValidateCommand(command); err != nil {
		return "", err
	}
	return command, nil
}

// ValidateCommand rejects commands that will break shell invocation:
// newlines and control characters other than tab.
func ValidateCommand(s string) error {
	if strings.Contains(s, "\n") {
		return fmt.Errorf("invalid command: contains newline characters; each command must be a single line")
	}
	if strings.IndexFunc(s, func(r rune) bool { return r == 0 || (r < 32 && r != '\t') || r == 0x7f }) != -1 {
		return fmt.Errorf("invalid command: contains control characters; remove non-printable characters")
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
