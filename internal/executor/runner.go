package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kalambet/vaultflow/internal/classify"
)

var (
	// ErrHandlerNotFound means no executable exists for the action.
	ErrHandlerNotFound = errors.New("no handler registered for action")
	// ErrHandlerTimeout means the handler did not finish within the deadline.
	ErrHandlerTimeout = errors.New("handler timed out")
)

// Runner invokes an external action handler and returns its stdout.
// Resolve reports whether a handler is installed without invoking it.
type Runner interface {
	Resolve(action classify.Action) error
	Invoke(ctx context.Context, action classify.Action, args []string) ([]byte, error)
}

// ScriptRunner runs handlers as subprocesses: one executable per action,
// resolved as <Dir>/<action>, killed after Timeout.
type ScriptRunner struct {
	Dir     string
	Timeout time.Duration
}

func (r *ScriptRunner) Resolve(action classify.Action) error {
	path := filepath.Join(r.Dir, string(action))
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, path)
	}
	return nil
}

func (r *ScriptRunner) Invoke(ctx context.Context, action classify.Action, args []string) ([]byte, error) {
	if err := r.Resolve(action); err != nil {
		return nil, err
	}
	path := filepath.Join(r.Dir, string(action))

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.Bytes(), fmt.Errorf("%w after %s", ErrHandlerTimeout, timeout)
	}
	if err != nil {
		return stdout.Bytes(), fmt.Errorf("handler %s: %w (stderr: %s)",
			action, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// handlerStatus pulls the `status` field out of a handler's JSON stdout.
// Anything unparsable counts as no status reported.
func handlerStatus(output []byte) string {
	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(output), &result); err != nil {
		return ""
	}
	return result.Status
}
