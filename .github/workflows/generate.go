// Command generate prints the CI workflow. Regenerate with:
//
//	go run ./.github/workflows > .github/workflows/ci.yaml
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

type Trigger struct {
	Push        PushTrigger `yaml:"push,omitempty"`
	PullRequest PushTrigger `yaml:"pull_request,omitempty"`
}

type Args map[string]interface{}

type Step struct {
	Name string `yaml:"name,omitempty"`
	If   string `yaml:"if,omitempty"`
	Uses string `yaml:"uses,omitempty"`
	ID   string `yaml:"id,omitempty"`
	Run  string `yaml:"run,omitempty"`
	With Args   `yaml:"with,omitempty"`
}

type Job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []Step `yaml:"steps"`
}

type Workflow struct {
	Name string         `yaml:"name"`
	On   Trigger        `yaml:"on,omitempty"`
	Jobs map[string]Job `yaml:"jobs"`
}

// Target is a platform the esfs binary is cross-compiled for.
type Target struct {
	OS   string
	Arch string
	Arm  string
}

func (t Target) name() string {
	if t.Arm != "" {
		return fmt.Sprintf("esfs-%s-%sv%s", t.OS, t.Arch, t.Arm)
	}
	return fmt.Sprintf("esfs-%s-%s", t.OS, t.Arch)
}

func checkout() []Step {
	return []Step{{
		Name: "Checkout",
		Uses: "actions/checkout@v4",
	}, {
		Name: "Set up Go",
		Uses: "actions/setup-go@v5",
		With: Args{"go-version-file": "go.mod"},
	}}
}

func JobTest() Job {
	return Job{
		RunsOn: "ubuntu-latest",
		Steps: append(checkout(), Step{
			Name: "Vet",
			Run:  "go vet ./...",
		}, Step{
			Name: "Test",
			Run:  "go test -race ./...",
		}),
	}
}

func JobBuild(targets ...Target) Job {
	steps := checkout()
	for _, target := range targets {
		env := fmt.Sprintf("GOOS=%s GOARCH=%s", target.OS, target.Arch)
		if target.Arm != "" {
			env += " GOARM=" + target.Arm
		}
		steps = append(steps, Step{
			Name: "Build " + target.name(),
			Run: fmt.Sprintf(
				"CGO_ENABLED=0 %s go build -o dist/%s ./cmd/esfs",
				env,
				target.name(),
			),
		})
	}
	return Job{
		RunsOn: "ubuntu-latest",
		Steps: append(steps, Step{
			Name: "Upload",
			If:   "startsWith(github.ref, 'refs/tags/')",
			Uses: "actions/upload-artifact@v4",
			With: Args{"name": "esfs", "path": "dist/"},
		}),
	}
}

func WorkflowCI(targets ...Target) Workflow {
	return Workflow{
		Name: "ci",
		On: Trigger{
			Push: PushTrigger{
				Branches: []string{"*"},
				Tags:     []string{"*"},
			},
			PullRequest: PushTrigger{Branches: []string{"*"}},
		},
		Jobs: map[string]Job{
			"test":  JobTest(),
			"build": JobBuild(targets...),
		},
	}
}

func MarshalToWriter(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling to YAML: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing YAML: %w", err)
	}
	return nil
}

func main() {
	if err := MarshalToWriter(
		os.Stdout,
		WorkflowCI(
			Target{OS: "linux", Arch: "amd64"},
			Target{OS: "linux", Arch: "arm64"},
			Target{OS: "linux", Arch: "arm", Arm: "7"},
			Target{OS: "darwin", Arch: "arm64"},
		),
	); err != nil {
		log.Fatalf("marshaling ci workflow: %v", err)
	}
}
