package count

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// yamlMilestoneFile is the top-level YAML structure for milestone files.
type yamlMilestoneFile struct {
	Milestones []Milestone `yaml:"milestones"`
}

// Milestone is one celebration rule: values divisible by Every announce
// Message, which may contain a single %d verb for the value.
type Milestone struct {
	Every   int64  `yaml:"every"`
	Message string `yaml:"message"`
}

// Milestones maps accepted count values to celebration messages. Rules are
// checked largest interval first, so a value divisible by both 1000 and
// 100 announces the 1000 milestone.
type Milestones struct {
	rules []Milestone // sorted by Every descending
}

// DefaultMilestones returns the built-in rules used when no milestone file
// is configured.
func DefaultMilestones() *Milestones {
	m, err := NewMilestones([]Milestone{
		{Every: 1000, Message: "Incredible! The count reached %d!"},
		{Every: 100, Message: "The count reached %d!"},
	})
	if err != nil {
		panic("count: default milestones invalid: " + err.Error())
	}
	return m
}

// LoadMilestonesFromFile reads and validates a milestone YAML file.
//
// Precondition: path must point to a valid YAML milestone file.
// Postcondition: Returns validated Milestones or a non-nil error.
func LoadMilestonesFromFile(path string) (*Milestones, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading milestone file %s: %w", path, err)
	}
	return LoadMilestonesFromBytes(data)
}

// LoadMilestonesFromBytes parses and validates milestones from YAML bytes.
func LoadMilestonesFromBytes(data []byte) (*Milestones, error) {
	var file yamlMilestoneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing milestone YAML: %w", err)
	}
	return NewMilestones(file.Milestones)
}

// NewMilestones validates the rules and returns them ready for lookup.
//
// Postcondition: Returns an error if any interval is non-positive or any
// message is empty.
func NewMilestones(rules []Milestone) (*Milestones, error) {
	sorted := make([]Milestone, len(rules))
	copy(sorted, rules)
	for _, r := range sorted {
		if r.Every <= 0 {
			return nil, fmt.Errorf("milestone interval must be positive, got %d", r.Every)
		}
		if r.Message == "" {
			return nil, fmt.Errorf("milestone for every %d has an empty message", r.Every)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Every > sorted[j].Every })
	return &Milestones{rules: sorted}, nil
}

// Lookup returns the announcement for value, or "" when value is not a
// milestone.
func (m *Milestones) Lookup(value int64) string {
	if m == nil || value <= 0 {
		return ""
	}
	for _, r := range m.rules {
		if value%r.Every == 0 {
			return fmt.Sprintf(r.Message, value)
		}
	}
	return ""
}
