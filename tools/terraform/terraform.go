// Package terraform provides a tool that shells out to the Terraform CLI
// and captures stdout, stderr and the exit code.
package terraform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"reflect"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenttools", "terraform")

const ToolName = "TerraformCommand"

// maxOutputSize bounds the captured CLI output returned to the model.
const maxOutputSize = 64 * 1024

var allowedCommands = []string{"init", "validate", "plan", "apply", "output"}

// Config holds the CLI binary location and execution limits.
type Config struct {
	// Binary is the terraform executable, "terraform" by default.
	Binary string
	// AllowedDirs restricts the working directories the tool may run in.
	AllowedDirs []string
	// AllowDestroy permits the destroy command in addition to the default set.
	AllowDestroy bool
	// Timeout bounds a single CLI invocation, 5 minutes by default.
	Timeout time.Duration
}

func (c *Config) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "terraform"
}

func (c *Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Minute
}

func (c *Config) checkWorkDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(err, "invalid working directory")
	}
	for _, allowed := range c.AllowedDirs {
		allowedAbs, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		if abs == allowedAbs || len(abs) > len(allowedAbs) &&
			abs[:len(allowedAbs)+1] == allowedAbs+string(filepath.Separator) {
			return nil
		}
	}
	return errors.Errorf("working directory is not allowed: %s", dir)
}

// CommandRequest represents the tool input.
type CommandRequest struct {
	Command string            `json:"Command" jsonschema:"title=Command,description=The terraform command: init, validate, plan, apply or output." validate:"required"`
	WorkDir string            `json:"WorkDir" jsonschema:"title=WorkDir,description=The directory containing the Terraform configuration." validate:"required"`
	Vars    map[string]string `json:"Vars,omitempty" jsonschema:"title=Vars,description=Terraform input variables passed as -var flags."`
}

// CommandResult represents the tool output.
// A nonzero exit code is part of the result, not a Go error:
// vendor failures must surface to the model as data.
type CommandResult struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr,omitempty"`
	HasChanges bool   `json:"has_changes,omitempty"`
}

func (r *CommandResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *CommandResult) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "terraform %s: exit %d\n", r.Command, r.ExitCode)
	if r.Stdout != "" {
		fmt.Fprintf(&buf, "STDOUT:\n%s\n", r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Fprintf(&buf, "STDERR:\n%s\n", r.Stderr)
	}
	return buf.String()
}

// Tool runs Terraform CLI commands in an allowlisted working directory.
type Tool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CommandRequest, CommandResult] = (*Tool)(nil)

func New(cfg *Config) (*Tool, error) {
	if cfg == nil || len(cfg.AllowedDirs) == 0 {
		return nil, errors.New("at least one allowed working directory is required")
	}
	sc, err := schema.New(reflect.TypeOf(CommandRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Tool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Runs a Terraform CLI command (init, validate, plan, apply, output) and returns stdout, stderr and the exit code."
}

func (t *Tool) Parameters() any { return t.funcParams }

func (t *Tool) Run(ctx context.Context, req *CommandRequest) (*CommandResult, error) {
	allowed := allowedCommands
	if t.cfg.AllowDestroy {
		allowed = append(slices.Clone(allowed), "destroy")
	}
	if !slices.Contains(allowed, req.Command) {
		return nil, errors.Errorf("command is not allowed: %s", req.Command)
	}
	if err := t.cfg.checkWorkDir(req.WorkDir); err != nil {
		return nil, err
	}

	args := []string{req.Command, "-no-color"}
	switch req.Command {
	case "init":
		args = append(args, "-input=false")
	case "plan":
		// exit 0: no changes, exit 2: changes present
		args = append(args, "-input=false", "-detailed-exitcode")
	case "apply", "destroy":
		args = append(args, "-input=false", "-auto-approve")
	case "output":
		args = append(args, "-json")
	}
	for k, v := range req.Vars {
		args = append(args, fmt.Sprintf("-var=%s=%s", k, v))
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.timeout())
	defer cancel()

	logger.KV(xlog.DEBUG, "cmd", req.Command, "dir", req.WorkDir)

	cmd := exec.CommandContext(ctx, t.cfg.binary(), args...)
	cmd.Dir = req.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, errors.Wrap(err, "failed to run terraform")
		}
	}

	res := &CommandResult{
		Command:  req.Command,
		ExitCode: exitCode,
		Stdout:   llmutils.TruncateString(stdout.String(), maxOutputSize),
		Stderr:   llmutils.TruncateString(stderr.String(), maxOutputSize),
	}
	if req.Command == "plan" && exitCode == 2 {
		res.HasChanges = true
	}
	return res, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CommandRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
