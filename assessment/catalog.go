// Package assessment scores the fixed multiple-choice questionnaires
// (relationship triage, singles readiness) into a percentage and a category.
package assessment

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Type names an assessment definition.
type Type string

const (
	TypeTriage  Type = "triage"
	TypeSingles Type = "singles"
)

// Option is one selectable answer of a question.
type Option struct {
	Value int    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Question is a static, immutable assessment question.
type Question struct {
	ID      int      `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

// HasOption reports whether v is one of the question's option values.
func (q Question) HasOption(v int) bool {
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Outcome is the summary and recommendation of a category.
type Outcome struct {
	Summary        string `yaml:"summary" json:"summary"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// HazardRule forces the hazard outcome when the question at QuestionIndex is
// answered with Sentinel, whatever the average.
type HazardRule struct {
	QuestionIndex int `yaml:"question_index" json:"question_index"`
	Sentinel      int `yaml:"sentinel" json:"sentinel"`
	Outcome       `yaml:",inline"`
}

// Bands holds the averaged categories, highest first.
type Bands struct {
	Strong   Outcome `yaml:"strong" json:"strong"`
	Moderate Outcome `yaml:"moderate" json:"moderate"`
	Critical Outcome `yaml:"critical" json:"critical"`
}

// Definition is a complete questionnaire.
type Definition struct {
	Type      Type        `yaml:"type" json:"type"`
	Title     string      `yaml:"title" json:"title"`
	Hazard    *HazardRule `yaml:"hazard,omitempty" json:"-"`
	Bands     Bands       `yaml:"bands" json:"-"`
	Questions []Question  `yaml:"questions" json:"questions"`
}

func (d *Definition) validate() error {
	if d.Type == "" {
		return fmt.Errorf("assessment definition without type")
	}
	if len(d.Questions) == 0 {
		return fmt.Errorf("assessment %q has no questions", d.Type)
	}
	for i, q := range d.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("assessment %q question %d has no options", d.Type, i)
		}
		for _, o := range q.Options {
			if o.Value < MinAnswer || o.Value > MaxAnswer {
				return fmt.Errorf("assessment %q question %d option value %d out of range", d.Type, i, o.Value)
			}
		}
	}
	if h := d.Hazard; h != nil {
		if h.QuestionIndex < 0 || h.QuestionIndex >= len(d.Questions) {
			return fmt.Errorf("assessment %q hazard question index %d out of range", d.Type, h.QuestionIndex)
		}
		if !d.Questions[h.QuestionIndex].HasOption(h.Sentinel) {
			return fmt.Errorf("assessment %q hazard sentinel %d is not an option", d.Type, h.Sentinel)
		}
	}
	return nil
}

// Catalog indexes definitions by type, keeping file order.
type Catalog struct {
	order []Type
	defs  map[Type]*Definition
}

// ParseCatalog decodes and validates a YAML list of definitions.
func ParseCatalog(data []byte) (*Catalog, error) {
	var defs []*Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode assessment catalog: %w", err)
	}
	c := &Catalog{defs: make(map[Type]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.defs[d.Type]; dup {
			return nil, fmt.Errorf("duplicate assessment type %q", d.Type)
		}
		c.defs[d.Type] = d
		c.order = append(c.order, d.Type)
	}
	return c, nil
}

// Get returns the definition for t.
func (c *Catalog) Get(t Type) (*Definition, bool) {
	d, ok := c.defs[t]
	return d, ok
}

// Definitions returns every definition in catalog order.
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.defs[t])
	}
	return out
}

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
})

// DefaultCatalog returns the embedded triage and singles questionnaires.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}
