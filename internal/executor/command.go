package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/multiversego/internal/ctxlog"
)

const (
	// SettingsEnvVar carries the JSON-encoded payload to command executors.
	SettingsEnvVar = "MULTIVERSE_SETTINGS"
	// ResultFileEnvVar names the file a command executor writes its result
	// columns to, as a single JSON object.
	ResultFileEnvVar = "MULTIVERSE_RESULT_FILE"
)

// CommandExecutor runs the unit of analysis as a subprocess. The payload is
// passed JSON-encoded in the MULTIVERSE_SETTINGS environment variable; the
// subprocess reports its result columns by writing a JSON object to the path
// named by MULTIVERSE_RESULT_FILE. An empty or absent result file counts as
// success with no columns.
type CommandExecutor struct {
	command []string
}

// NewCommandExecutor builds a subprocess-backed executor from an argv slice.
func NewCommandExecutor(command []string) (*CommandExecutor, error) {
	if len(command) == 0 {
		return nil, errors.New("command executor needs at least one argument")
	}
	return &CommandExecutor{command: command}, nil
}

func (e *CommandExecutor) Name() string { return "command" }

// Execute runs the configured command once. Cancelling ctx kills the
// subprocess.
func (e *CommandExecutor) Execute(ctx context.Context, payload *Payload) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	settings, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode settings payload: %w", err)
	}

	resultFile, err := os.CreateTemp("", "multiverse-result-*.json")
	if err != nil {
		return nil, fmt.Errorf("create result file: %w", err)
	}
	resultPath := resultFile.Name()
	if err := resultFile.Close(); err != nil {
		return nil, fmt.Errorf("close result file: %w", err)
	}
	defer os.Remove(resultPath)

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Env = append(os.Environ(),
		SettingsEnvVar+"="+string(settings),
		ResultFileEnvVar+"="+resultPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Starting command executor.", "universe_id", payload.UniverseID, "command", e.command[0])
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &ExecutionError{UniverseID: payload.UniverseID, Executor: e.Name(), Err: err}
	}
	output := strings.TrimSpace(stdout.String())
	if output != "" {
		logger.Debug("Command executor output.", "universe_id", payload.UniverseID, "stdout", output)
	}

	columns, err := readResultFile(resultPath)
	if err != nil {
		return nil, &ExecutionError{UniverseID: payload.UniverseID, Executor: e.Name(), Err: err}
	}
	return &Result{Columns: columns, Output: output}, nil
}

func readResultFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var columns map[string]any
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("parse result file: %w", err)
	}
	return columns, nil
}
