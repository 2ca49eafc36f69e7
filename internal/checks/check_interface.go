package checks

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mpolitzer/elf/internal/elfcore"
	"github.com/mpolitzer/elf/internal/utils"
)

// Check is one structural lint run against a decoded image.
type Check interface {
	// ID returns the unique identifier for this check (e.g. "section-table")
	ID() string

	// Description returns what this check validates
	Description() string

	// Run evaluates the check. It must not modify the target.
	Run(t *Target) Result
}

// Target is the image a check runs against.
type Target struct {
	Path string
	File *elfcore.File
}

// Status is the outcome of a check.
type Status string

const (
	StatusPass  Status = "pass"
	StatusWarn  Status = "warn"
	StatusFail  Status = "fail"
	StatusSkip  Status = "skip"
	StatusError Status = "error"
)

// Result contains the outcome of one check.
type Result struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Status      Status                 `json:"status"`
	Message     string                 `json:"message"`
	Findings    []string               `json:"findings,omitempty"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// findings accumulates problems while a check walks the image. Failures
// outrank warnings when the result is built.
type findings struct {
	fail *multierror.Error
	warn *multierror.Error
}

func (f *findings) failf(format string, args ...interface{}) {
	f.fail = multierror.Append(f.fail, fmt.Errorf(format, args...))
}

func (f *findings) warnf(format string, args ...interface{}) {
	f.warn = multierror.Append(f.warn, fmt.Errorf(format, args...))
}

func messages(e *multierror.Error) []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, err.Error())
	}
	return out
}

func (f *findings) result(passMessage string) Result {
	failed, warned := messages(f.fail), messages(f.warn)
	r := Result{Findings: append(failed, warned...)}
	switch {
	case len(failed) > 0:
		r.Status = StatusFail
		r.Message = fmt.Sprintf("%d problem(s) found", len(failed))
	case len(warned) > 0:
		r.Status = StatusWarn
		r.Message = fmt.Sprintf("%d warning(s)", len(warned))
	default:
		r.Status = StatusPass
		r.Message = passMessage
	}
	return r
}

// errored reports a check that could not be evaluated.
func errored(err error) Result {
	return Result{Status: StatusError, Message: err.Error()}
}

// Registry manages a collection of checks.
type Registry struct {
	checks map[string]Check
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// NewDefaultRegistry returns a registry holding every built-in check.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range DefaultChecks() {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a check. IDs must be unique.
func (r *Registry) Register(check Check) error {
	if _, exists := r.checks[check.ID()]; exists {
		return fmt.Errorf("check %q already registered", check.ID())
	}
	r.checks[check.ID()] = check
	return nil
}

// Get retrieves a check by ID
func (r *Registry) Get(id string) (Check, bool) {
	check, exists := r.checks[id]
	return check, exists
}

// List returns all registered checks ordered by ID.
func (r *Registry) List() []Check {
	checks := make([]Check, 0, len(r.checks))
	for _, check := range r.checks {
		checks = append(checks, check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].ID() < checks[j].ID() })
	return checks
}

// Runner executes checks from a registry.
type Runner struct {
	registry *Registry
	logger   *utils.Logger
	skip     map[string]bool
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(registry *Registry, logger *utils.Logger) *Runner {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Runner{registry: registry, logger: logger, skip: make(map[string]bool)}
}

// Skip marks checks to be reported as skipped instead of run.
func (r *Runner) Skip(ids ...string) error {
	var result *multierror.Error
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := r.registry.Get(id); !ok {
			result = multierror.Append(result, fmt.Errorf("unknown check %q", id))
			continue
		}
		r.skip[id] = true
	}
	return result.ErrorOrNil()
}

// Report contains the results of running several checks on one image.
type Report struct {
	Path    string   `json:"path"`
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// Summary counts results by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// OK reports whether nothing failed or errored. With failOnWarn, warnings
// count as failures too.
func (r *Report) OK(failOnWarn bool) bool {
	if r.Summary.Failed > 0 || r.Summary.Errors > 0 {
		return false
	}
	return !failOnWarn || r.Summary.Warned == 0
}

// RunAll executes every registered check against t.
func (r *Runner) RunAll(t *Target) (*Report, error) {
	return r.run(t, r.registry.List())
}

// RunSelected executes the named checks in the given order. Unknown IDs
// are an error and nothing runs.
func (r *Runner) RunSelected(t *Target, ids []string) (*Report, error) {
	var result *multierror.Error
	selected := make([]Check, 0, len(ids))
	for _, id := range ids {
		check, ok := r.registry.Get(id)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("unknown check %q", id))
			continue
		}
		selected = append(selected, check)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r.run(t, selected)
}

func (r *Runner) run(t *Target, checks []Check) (*Report, error) {
	if t == nil || t.File == nil {
		return nil, fmt.Errorf("no decoded image to check")
	}
	log := r.logger.WithComponent("checks").WithField("path", t.Path)

	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if r.skip[check.ID()] {
			log.WithField("check", check.ID()).Debug("Skipping check")
			results = append(results, Result{
				ID:          check.ID(),
				Description: check.Description(),
				Status:      StatusSkip,
				Message:     "skipped by configuration",
			})
			continue
		}

		start := time.Now()
		result := check.Run(t)
		result.ID = check.ID()
		result.Description = check.Description()
		result.Duration = time.Since(start)
		log.WithFields(map[string]interface{}{
			"check":    result.ID,
			"status":   result.Status,
			"duration": result.Duration,
		}).Debug("Check finished")
		results = append(results, result)
	}

	return &Report{
		Path:    t.Path,
		Results: results,
		Summary: summarize(results),
	}, nil
}

func summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		switch result.Status {
		case StatusPass:
			summary.Passed++
		case StatusWarn:
			summary.Warned++
		case StatusFail:
			summary.Failed++
		case StatusError:
			summary.Errors++
		case StatusSkip:
			summary.Skipped++
		}
	}
	return summary
}
