package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePlan = `
name: app
projects:
  - id: org.example:core:1.0
    steps:
      - group_id: org.example.plugins
        artifact_id: go-plugin
        version: 1.2.0
        goal: compile
        execution_id: default-compile
        phase: compile
        run: go build ./...
      - artifact_id: go-plugin
        goal: test
        run: go test ./...
  - id: org.example:web:1.0
    steps:
      - artifact_id: npm-plugin
        goal: install
        run: npm ci
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "app" || len(p.Projects) != 2 {
		t.Fatalf("plan = %+v", p)
	}
	core := p.Projects[0]
	if len(core.Steps) != 2 || core.Steps[0].Run != "go build ./..." {
		t.Errorf("core steps = %+v", core.Steps)
	}

	m := core.Steps[0].Mojo(core.ID)
	if m.GroupID != "org.example.plugins" || m.ArtifactID != "go-plugin" || m.Version != "1.2.0" ||
		m.Goal != "compile" || m.ExecutionID != "default-compile" || m.Phase != "compile" ||
		m.Project != "org.example:core:1.0" {
		t.Errorf("Mojo = %+v", m)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte("projects:\n  - id: a\n    stepz: []\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string // substring of the error, empty for success
	}{
		{"empty", "", "no projects"},
		{"missing id", "projects:\n  - steps: []\n", "missing id"},
		{"duplicate id", "projects:\n  - id: a\n  - id: a\n", `duplicate id "a"`},
		{"missing goal", "projects:\n  - id: a\n    steps:\n      - artifact_id: foo\n", "missing goal"},
		{"missing artifact", "projects:\n  - id: a\n    steps:\n      - goal: compile\n", "missing artifact_id"},
		{"no steps is fine", "projects:\n  - id: a\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildtrace.yaml")
	os.WriteFile(path, []byte(samplePlan), 0644)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Projects) != 2 {
		t.Errorf("projects = %d, want 2", len(p.Projects))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseNormalizesIDs(t *testing.T) {
	// "café" precomposed and decomposed.
	doc := "projects:\n  - id: \"caf\u00e9\"\n  - id: \"cafe\u0301\"\n"
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Errorf("error = %v, want duplicate id after normalization", err)
	}
}
