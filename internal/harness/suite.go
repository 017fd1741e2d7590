package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Name  string `json:"name,omitempty"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// OK reports whether every scenario passed.
func (r *SuiteResult) OK() bool {
	return r.Failed == 0
}

// FindScenarios returns the scenario files under path: the file itself, or
// every *.yaml and *.yml file in the directory sorted by name.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(path, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", path)
	}
	return paths, nil
}

// RunSuite loads and runs every scenario under path. A scenario that fails
// to load counts as a failure; only a context error stops the suite.
func (h *Harness) RunSuite(ctx context.Context, path string) (*SuiteResult, error) {
	paths, err := FindScenarios(path)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	for _, p := range paths {
		result.Total++

		scenario, err := LoadScenario(p)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Path:  p,
				Error: fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		run, err := h.Run(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Name:  scenario.Name,
				Path:  p,
				Error: fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if !run.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Name:  scenario.Name,
				Path:  p,
				Error: strings.Join(run.Errors, "\n"),
			})
			continue
		}
		result.Passed++
	}

	h.logger.Debug("suite finished",
		"path", path,
		"total", result.Total,
		"passed", result.Passed,
		"failed", result.Failed)
	return result, nil
}
