// Package plan reads YAML build plans: a list of projects, each an ordered
// list of steps bound to plugin goals.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/nevindra/buildtrace"
)

// Plan is a parsed build plan.
type Plan struct {
	Name     string    `yaml:"name"`
	Projects []Project `yaml:"projects"`
}

// Project is one module of the build. Its steps run in order.
type Project struct {
	ID    string `yaml:"id"`
	Steps []Step `yaml:"steps"`
}

// Step binds a plugin goal to the command that implements it.
type Step struct {
	GroupID     string `yaml:"group_id"`
	ArtifactID  string `yaml:"artifact_id"`
	Version     string `yaml:"version"`
	Goal        string `yaml:"goal"`
	ExecutionID string `yaml:"execution_id"`
	Phase       string `yaml:"phase"`
	Run         string `yaml:"run"`
}

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a plan. Unknown fields are rejected. Project ids
// and plugin coordinates are normalized to NFC so they compare and export
// consistently.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	p.canonicalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks structural constraints and reports every problem found.
func (p *Plan) Validate() error {
	if len(p.Projects) == 0 {
		return errors.New("no projects")
	}
	var errs []error
	seen := make(map[string]bool, len(p.Projects))
	for i, proj := range p.Projects {
		if proj.ID == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: missing id", i))
		} else if seen[proj.ID] {
			errs = append(errs, fmt.Errorf("projects[%d]: duplicate id %q", i, proj.ID))
		}
		seen[proj.ID] = true
		for j, s := range proj.Steps {
			if s.ArtifactID == "" {
				errs = append(errs, fmt.Errorf("%s: steps[%d]: missing artifact_id", proj.ID, j))
			}
			if s.Goal == "" {
				errs = append(errs, fmt.Errorf("%s: steps[%d]: missing goal", proj.ID, j))
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Plan) canonicalize() {
	for i := range p.Projects {
		proj := &p.Projects[i]
		proj.ID = norm.NFC.String(proj.ID)
		for j := range proj.Steps {
			s := &proj.Steps[j]
			s.GroupID = norm.NFC.String(s.GroupID)
			s.ArtifactID = norm.NFC.String(s.ArtifactID)
			s.Goal = norm.NFC.String(s.Goal)
			s.ExecutionID = norm.NFC.String(s.ExecutionID)
		}
	}
}

// Mojo describes the step as a mojo execution of project.
func (s Step) Mojo(project string) buildtrace.MojoExecution {
	return buildtrace.MojoExecution{
		GroupID:     s.GroupID,
		ArtifactID:  s.ArtifactID,
		Version:     s.Version,
		Goal:        s.Goal,
		ExecutionID: s.ExecutionID,
		Phase:       s.Phase,
		Project:     project,
	}
}
