package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// Scenario is one scripted run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Online is the connectivity state at start.
	Online bool `yaml:"online"`

	// Today is the fake clock's calendar date. Defaults to 2024-01-15.
	Today string `yaml:"today,omitempty"`

	// SettleDelay overrides the settle window, e.g. "0s" for explicit
	// confirmation. Defaults to 500ms.
	SettleDelay string `yaml:"settle_delay,omitempty"`

	// OfflineQueue disables deferral when set to false.
	OfflineQueue *bool `yaml:"offline_queue,omitempty"`

	// MaxRetries overrides the retry ceiling.
	MaxRetries int `yaml:"max_retries,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation. Fields are interpreted per Op.
type Step struct {
	Op        string  `yaml:"op"`
	Habit     int64   `yaml:"habit,omitempty"`
	Habits    []int64 `yaml:"habits,omitempty"`
	Date      string  `yaml:"date,omitempty"`
	Current   bool    `yaml:"current,omitempty"`
	Completed bool    `yaml:"completed,omitempty"`
	Online    bool    `yaml:"online,omitempty"`
	Duration  string  `yaml:"duration,omitempty"`
	Count     int     `yaml:"count,omitempty"`
	Conflict  bool    `yaml:"conflict,omitempty"`
}

// Step op constants.
const (
	OpToggle      = "toggle"
	OpComplete    = "complete"
	OpBulk        = "bulk"
	OpSetOnline   = "set_online"
	OpAdvance     = "advance"
	OpDrain       = "drain"
	OpRetryFailed = "retry_failed"
	OpClearQueue  = "clear_queue"
	OpFailWrites  = "fail_writes"
	OpCacheSet    = "cache_set"
	OpReadStatus  = "read_status"
)

// Assertion checks final state.
type Assertion struct {
	Type      string `yaml:"type"`
	Habit     int64  `yaml:"habit,omitempty"`
	Date      string `yaml:"date,omitempty"`
	Confirmed bool   `yaml:"confirmed,omitempty"`
	Expect    *bool  `yaml:"expect,omitempty"`
	Count     *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertDisplayValue = "display_value"
	AssertProvisional  = "provisional"
	AssertQueueSize    = "queue_size"
	AssertFailedCount  = "failed_count"
	AssertCacheMiss    = "cache_miss"
	AssertWriteCalls   = "write_calls"
	AssertServerState  = "server_state"
)

// DefaultToday is the fake clock's date when a scenario names none.
const DefaultToday = "2024-01-15"

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Today != "" {
		if err := model.ValidateDate(s.Today); err != nil {
			return fmt.Errorf("today: %w", err)
		}
	}
	if s.SettleDelay != "" {
		if d, err := time.ParseDuration(s.SettleDelay); err != nil || d < 0 {
			return fmt.Errorf("settle_delay: invalid duration %q", s.SettleDelay)
		}
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if st.Date != "" {
		if err := model.ValidateDate(st.Date); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}

	switch st.Op {
	case OpToggle, OpComplete, OpCacheSet, OpReadStatus:
		if st.Habit <= 0 {
			return fmt.Errorf("steps[%d]: habit is required for %s", index, st.Op)
		}
	case OpBulk:
		if len(st.Habits) == 0 {
			return fmt.Errorf("steps[%d]: habits list is required for bulk", index)
		}
	case OpAdvance:
		if d, err := time.ParseDuration(st.Duration); err != nil || d < 0 {
			return fmt.Errorf("steps[%d]: advance needs a non-negative duration, got %q", index, st.Duration)
		}
	case OpFailWrites:
		if st.Count <= 0 {
			return fmt.Errorf("steps[%d]: count must be positive for fail_writes", index)
		}
	case OpSetOnline, OpDrain, OpRetryFailed, OpClearQueue:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertDisplayValue, AssertProvisional, AssertServerState:
		if a.Habit <= 0 || a.Date == "" {
			return fmt.Errorf("assertions[%d]: habit and date are required for %s", index, a.Type)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertCacheMiss:
		if a.Habit <= 0 || a.Date == "" {
			return fmt.Errorf("assertions[%d]: habit and date are required for cache_miss", index)
		}
	case AssertQueueSize, AssertFailedCount, AssertWriteCalls:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
