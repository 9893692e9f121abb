// Package release implements a minimal, approval-gated release-step
// runner (spec §6, §9): a linear sequence of steps read from
// .ta/release.yaml with ${VERSION}/${TAG}/${COMMITS}/${LAST_TAG}
// substitution. It never invokes git or GitHub itself — each step is an
// external-interface concern the operator confirms through a
// ReviewChannel; this package only sequences, substitutes, and records.
package release

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/reviewchannel"
)

// Step is one named action in a release pipeline, grounded on the
// teacher's bundle-descriptor shape (paas_release_bundle.go): a name plus
// a human-readable description of what the operator must actually do
// outside the core.
type Step struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Pipeline is the parsed .ta/release.yaml document.
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// DefaultPipeline is what `release init` writes when no release.yaml
// exists yet.
func DefaultPipeline() Pipeline {
	return Pipeline{Steps: []Step{
		{Name: "changelog", Description: "Update CHANGELOG.md for ${VERSION} (commits since ${LAST_TAG}:\n${COMMITS})"},
		{Name: "tag", Description: "Tag the release as ${TAG}"},
		{Name: "publish", Description: "Publish ${TAG} to the configured remote"},
	}}
}

func path(taDir string) string {
	return filepath.Join(taDir, "release.yaml")
}

// Load reads .ta/release.yaml, falling back to an error if absent — unlike
// workflow.toml, a release run with no pipeline defined is a user error,
// not a default-filled no-op.
func Load(taDir string) (Pipeline, error) {
	data, err := os.ReadFile(path(taDir))
	if err != nil {
		if os.IsNotExist(err) {
			return Pipeline{}, opfail.New(opfail.NotFound, "release:load", taDir,
				"run `release init` to scaffold .ta/release.yaml", fmt.Errorf("no release pipeline at %s", path(taDir)))
		}
		return Pipeline{}, err
	}
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("parse release.yaml: %w", err)
	}
	return p, nil
}

// Save writes a Pipeline to .ta/release.yaml.
func Save(taDir string, p Pipeline) error {
	if err := os.MkdirAll(taDir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path(taDir), data, 0o600)
}

// Vars are the substitution variables available to every step's
// description (spec §6).
type Vars struct {
	Version string
	Tag     string
	Commits string
	LastTag string
}

func (v Vars) substitute(s string) string {
	replacer := strings.NewReplacer(
		"${VERSION}", v.Version,
		"${TAG}", v.Tag,
		"${COMMITS}", v.Commits,
		"${LAST_TAG}", v.LastTag,
	)
	return replacer.Replace(s)
}

// StepResult records what happened to one step during a run.
type StepResult struct {
	Step       Step
	Rendered   string
	Confirmed  bool
	DryRun     bool
	ExecutedAt time.Time
}

// RunOptions controls a release run.
type RunOptions struct {
	FromStep int // 1-indexed; 0 or 1 means start from the beginning
	DryRun   bool
}

// Run walks p's steps in order starting at opts.FromStep, substituting
// vars into each step's description and requesting confirmation through
// channel before considering the step done. In dry-run mode, no
// confirmation is requested and every step is reported but not "executed".
func Run(p Pipeline, vars Vars, channel reviewchannel.Channel, opts RunOptions) ([]StepResult, error) {
	start := opts.FromStep
	if start < 1 {
		start = 1
	}
	if start > len(p.Steps)+1 {
		return nil, opfail.Newf(opfail.InvalidArgument, "release:run", "",
			"pass a --from-step within the pipeline's step count",
			"from-step %d exceeds pipeline length %d", start, len(p.Steps))
	}

	var results []StepResult
	for i := start - 1; i < len(p.Steps); i++ {
		step := p.Steps[i]
		rendered := vars.substitute(step.Description)
		channel.Notify(fmt.Sprintf("step %d/%d: %s\n%s", i+1, len(p.Steps), step.Name, rendered))

		if opts.DryRun {
			results = append(results, StepResult{Step: step, Rendered: rendered, DryRun: true})
			continue
		}

		resp, err := channel.RequestInteraction(reviewchannel.Interaction{
			Prompt:     fmt.Sprintf("mark step %q complete and continue?", step.Name),
			DefaultYes: true,
		})
		if err != nil {
			return results, err
		}
		if resp.Cancelled || !resp.Confirmed {
			return results, opfail.Newf(opfail.ValidationError, "release:run", step.Name,
				"re-run with --from-step to resume after this step",
				"release run halted at step %q (%d/%d)", step.Name, i+1, len(p.Steps))
		}
		results = append(results, StepResult{Step: step, Rendered: rendered, Confirmed: true, ExecutedAt: time.Now().UTC()})
	}
	return results, nil
}
