package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"unicode/utf8"

	panelErr "github.com/sajjad-MoBe/usbrefresh/panel/src/internal/errors"
)

// maxOutput bounds how much command output is carried in an error message
const maxOutput = 512

// Executor runs external operations on behalf of the refresh sequence
type Executor interface {
	Run(ctx context.Context, name string, args ...string) error
}

// OSExecutor runs real programs on the host
type OSExecutor struct{}

// NewOSExecutor creates an executor backed by os/exec
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{}
}

// Run executes name with args and waits for it to finish.
// A non-zero exit or a start failure is returned as a COMMAND PanelError.
func (e *OSExecutor) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	return commandError(CommandLine(name, args...), output, err)
}

// CommandLine renders a program and its arguments the way a shell user would type them
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func commandError(line string, output []byte, err error) error {
	var msg string
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			msg = fmt.Sprintf("command '%s' died with signal %d (%s)", line, int(ws.Signal()), ws.Signal())
		} else {
			msg = fmt.Sprintf("command '%s' returned non-zero exit status %d", line, exitErr.ExitCode())
		}
	} else {
		msg = fmt.Sprintf("command '%s' could not be run", line)
	}

	out := strings.TrimSpace(string(output))
	if len(out) > maxOutput {
		cut := maxOutput
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "..."
	}
	if out != "" {
		msg = fmt.Sprintf("%s (%s)", msg, out)
	}

	if exitErr != nil {
		return panelErr.New(panelErr.ErrorTypeCommand, msg, nil)
	}
	return panelErr.New(panelErr.ErrorTypeCommand, msg, err)
}
