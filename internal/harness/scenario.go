package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Gu1nness/jhack/internal/codec"
	"github.com/Gu1nness/jhack/internal/recorder"
)

// Scenario defines a conformance test scenario: the call sites under
// interception and a scripted sequence of backend calls.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sites lists the intercepted call sites.
	Sites []SiteSpec `yaml:"sites"`

	// Steps is the scripted call sequence. The same sequence runs
	// twice: once recording, once replaying.
	Steps []Step `yaml:"steps"`

	// ReplaySteps, when set, replaces Steps for the replay pass. A
	// sequence that departs from the recording exercises the
	// divergence fallbacks.
	ReplaySteps []Step `yaml:"replay_steps,omitempty"`
}

// SiteSpec declares one intercepted call site. Policy defaults to
// strict and the serializer pair to json/json, matching the registry
// defaults.
type SiteSpec struct {
	Namespace     string          `yaml:"namespace,omitempty"`
	Name          string          `yaml:"name"`
	CachingPolicy string          `yaml:"caching_policy,omitempty"`
	Serializer    *SerializerSpec `yaml:"serializer,omitempty"`
}

// SerializerSpec is the {input, output} serializer tag pair.
type SerializerSpec struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// Step is one scripted backend call: which site to call, with what
// arguments, and what the scripted backend returns.
type Step struct {
	// Call is the qualified site name, e.g. "ModelBackend.status_get".
	Call string `yaml:"call"`

	// Args are the positional arguments.
	Args []any `yaml:"args,omitempty"`

	// Kwargs are the keyword arguments.
	Kwargs map[string]any `yaml:"kwargs,omitempty"`

	// Returns is what the scripted backend produces for this call.
	Returns any `yaml:"returns,omitempty"`
}

// compile turns the spec into an interception site.
func (s SiteSpec) compile() recorder.Site {
	site := recorder.Site{
		Namespace:  s.Namespace,
		Name:       s.Name,
		Policy:     recorder.PolicyStrict,
		Serializer: codec.DefaultPair,
	}
	if s.CachingPolicy != "" {
		site.Policy = recorder.CheckPolicy(recorder.Policy(s.CachingPolicy), nil)
	}
	if s.Serializer != nil {
		site.Serializer = codec.CheckPair(codec.Pair{
			Input:  codec.Format(s.Serializer.Input),
			Output: codec.Format(s.Serializer.Output),
		}, nil)
	}
	return site
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so that typos surface as load errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and every
// step addresses a declared site.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sites) == 0 {
		return fmt.Errorf("sites list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	declared := map[string]bool{}
	for i, site := range s.Sites {
		if site.Name == "" {
			return fmt.Errorf("sites[%d]: name is required", i)
		}
		declared[site.compile().QualifiedName()] = true
	}

	for i, step := range s.Steps {
		if err := validateStep("steps", i, step, declared); err != nil {
			return err
		}
	}
	for i, step := range s.ReplaySteps {
		if err := validateStep("replay_steps", i, step, declared); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(list string, i int, step Step, declared map[string]bool) error {
	if step.Call == "" {
		return fmt.Errorf("%s[%d]: call is required", list, i)
	}
	if !declared[step.Call] {
		return fmt.Errorf("%s[%d]: call %q does not match any declared site", list, i, step.Call)
	}
	return nil
}
