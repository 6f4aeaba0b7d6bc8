// Package simulate replays scripted storefront interactions against a page
// session on a manual clock. It backs the "xtheme simulate" command.
package simulate

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario wraps every scenario validation failure.
var ErrInvalidScenario = errors.New("simulate: invalid scenario")

// Scenario is a scripted visit to one page.
type Scenario struct {
	Name string `yaml:"name"`
	// Path is reported by the window, e.g. /products/1.
	Path   string `yaml:"path"`
	Locale string `yaml:"locale"`
	// Prefs seeds the preference store before the page boots.
	Prefs map[string]string `yaml:"prefs"`
	Steps []Step            `yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one action. Exactly one action field must be set.
type Step struct {
	// Emit publishes a platform event with Payload.
	Emit    string `yaml:"emit"`
	Payload any    `yaml:"payload"`

	// Type sets the value of the control matched by the selector.
	Type  string `yaml:"type"`
	Value string `yaml:"value"`

	Click  string `yaml:"click"`
	Reveal string `yaml:"reveal"`

	Scroll  *float64      `yaml:"scroll"`
	Advance time.Duration `yaml:"advance" validate:"gte=0"`
	Reload  bool          `yaml:"reload"`
}

// Action names the step's action.
func (s Step) Action() string {
	switch {
	case s.Emit != "":
		return "emit"
	case s.Type != "":
		return "type"
	case s.Click != "":
		return "click"
	case s.Reveal != "":
		return "reveal"
	case s.Scroll != nil:
		return "scroll"
	case s.Advance > 0:
		return "advance"
	case s.Reload:
		return "reload"
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Emit != "", s.Type != "", s.Click != "", s.Reveal != "", s.Scroll != nil, s.Advance > 0, s.Reload} {
		if set {
			n++
		}
	}
	return n
}

var validate = validator.New()

// Validate checks that every step names exactly one action.
func (sc *Scenario) Validate() error {
	if err := validate.Struct(sc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for i, st := range sc.Steps {
		switch n := st.actions(); {
		case n == 0:
			return fmt.Errorf("%w: step %d has no action", ErrInvalidScenario, i+1)
		case n > 1:
			return fmt.Errorf("%w: step %d has %d actions", ErrInvalidScenario, i+1, n)
		}
	}
	return nil
}

// Parse decodes and validates a YAML scenario.
func Parse(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("simulate: parse scenario: %w", err)
	}
	if sc.Path == "" {
		sc.Path = "/"
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads a scenario from path.
func LoadFile(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("simulate: read scenario: %w", err)
	}
	return Parse(raw)
}
