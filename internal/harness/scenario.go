package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one declarative engine test.
type Scenario struct {
	// Name uniquely identifies the scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Document is the initial HTML the engine binds.
	Document string `yaml:"document"`

	// Routes script the test server. The first route matching the
	// request's method and path answers it; anything unmatched gets a
	// 404 with an empty body.
	Routes []Route `yaml:"routes"`

	// Steps run in order against the engine.
	Steps []Step `yaml:"steps"`
}

// Route is one scripted server response.
type Route struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Status  int               `yaml:"status,omitempty"` // 0 means 200
	Body    string            `yaml:"body,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Step is one scripted action. Exactly one of the fields is set.
type Step struct {
	// Event dispatches a runtime event to the element Target selects.
	// Value, when present, carries the input value.
	Event  string  `yaml:"event,omitempty"`
	Target string  `yaml:"target,omitempty"`
	Value  *string `yaml:"value,omitempty"`

	// Wait blocks until a lifecycle event of this type is observed.
	Wait string `yaml:"wait,omitempty"`

	// Back / Forward traverse history.
	Back    bool `yaml:"back,omitempty"`
	Forward bool `yaml:"forward,omitempty"`
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	sort.Strings(paths)

	var out []*Scenario
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if s.Document == "" {
		return fmt.Errorf("missing document")
	}
	for i, step := range s.Steps {
		set := 0
		if step.Event != "" {
			set++
			if step.Target == "" {
				return fmt.Errorf("step %d: event %q needs a target", i, step.Event)
			}
		}
		if step.Wait != "" {
			set++
		}
		if step.Back {
			set++
		}
		if step.Forward {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d: exactly one of event, wait, back, forward", i)
		}
	}
	return nil
}
