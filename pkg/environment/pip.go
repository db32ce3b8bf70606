package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/requirement"
)

// DefaultPython is the interpreter used when PipInspect.Python is empty.
const DefaultPython = "python3"

// CommandError reports a failed interpreter invocation. Stderr is kept
// verbatim.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// PipInspect lists packages by running "<Python> -m pip inspect --local".
type PipInspect struct {
	Python string
}

// ListInstalled implements Lister.
func (p PipInspect) ListInstalled(ctx context.Context) ([]Package, error) {
	python := p.Python
	if python == "" {
		python = DefaultPython
	}
	args := []string{python, "-m", "pip", "inspect", "--local"}

	//nolint:gosec // the interpreter path is supplied by the user
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{Args: args, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("run %s: %w", python, err)
	}
	return ParseInspect(out)
}

type inspectReport struct {
	Installed []struct {
		Metadata struct {
			Name         string   `json:"name"`
			Version      string   `json:"version"`
			RequiresDist []string `json:"requires_dist"`
		} `json:"metadata"`
	} `json:"installed"`
}

// ParseInspect decodes a pip inspect report. Requirement lines that do not
// parse are skipped, as pip itself does. Packages are sorted by key.
func ParseInspect(data []byte) ([]Package, error) {
	var report inspectReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errs.Wrap(errs.ErrCodeParse, err, "invalid pip inspect report")
	}
	out := make([]Package, 0, len(report.Installed))
	for _, inst := range report.Installed {
		md := inst.Metadata
		if md.Name == "" {
			continue
		}
		pkg := Package{Name: md.Name, Version: md.Version}
		for _, line := range md.RequiresDist {
			r, err := requirement.Parse(line)
			if err != nil {
				continue
			}
			pkg.Requires = append(pkg.Requires, r)
		}
		out = append(out, pkg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
