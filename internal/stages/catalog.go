// Package stages holds the immutable, ordered catalog of refinement stages
// and the example prompt templates a session can start from.
package stages

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/fpang/prompt-studio/internal/assets"
	"gopkg.in/yaml.v3"
)

// InitialIdeaKey is the reserved answer key holding the user's starting idea.
// It is never a stage id.
const InitialIdeaKey = "initial_idea"

// Stage ids in wizard order.
const (
	Concept  = "concept"
	Mood     = "mood"
	Subjects = "subjects"
	Visual   = "visual"
	Polish   = "polish"
)

// Stage is one step of the refinement wizard.
type Stage struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Questions   []string `yaml:"questions" json:"questions"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"`
}

// Template is an example prompt that can seed a new session.
type Template struct {
	ID     string   `yaml:"id" json:"id"`
	Title  string   `yaml:"title" json:"title"`
	Prompt string   `yaml:"prompt" json:"prompt"`
	Tags   []string `yaml:"tags" json:"tags"`
}

type stagesFile struct {
	Stages []Stage `yaml:"stages"`
}

type templatesFile struct {
	Templates []Template `yaml:"templates"`
}

// Catalog is the ordered stage list plus templates. It is safe for
// concurrent use because it is never mutated after Parse.
type Catalog struct {
	stages    []Stage
	index     map[string]int
	templates []Template
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded YAML assets.
// It panics if the embedded files are malformed.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(assets.StagesYAML, assets.TemplatesYAML)
		if err != nil {
			panic(fmt.Sprintf("stages: embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and validates a stage catalog and a template list.
// templatesData may be empty.
func Parse(stagesData, templatesData []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(stagesData)) == 0 {
		return nil, fmt.Errorf("stages: catalog payload is empty")
	}
	var sf stagesFile
	if err := yaml.Unmarshal(stagesData, &sf); err != nil {
		return nil, fmt.Errorf("stages: decode catalog: %w", err)
	}
	if len(sf.Stages) == 0 {
		return nil, fmt.Errorf("stages: catalog defines no stages")
	}

	c := &Catalog{index: make(map[string]int, len(sf.Stages))}
	for i, s := range sf.Stages {
		s = s.normalized()
		if s.ID == "" {
			return nil, fmt.Errorf("stages: stage %d has no id", i)
		}
		if s.ID == InitialIdeaKey {
			return nil, fmt.Errorf("stages: %q is reserved", InitialIdeaKey)
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("stages: duplicate stage id %q", s.ID)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("stages: stage %q has no title", s.ID)
		}
		c.index[s.ID] = len(c.stages)
		c.stages = append(c.stages, s)
	}

	if len(bytes.TrimSpace(templatesData)) > 0 {
		var tf templatesFile
		if err := yaml.Unmarshal(templatesData, &tf); err != nil {
			return nil, fmt.Errorf("stages: decode templates: %w", err)
		}
		seen := make(map[string]bool, len(tf.Templates))
		for _, t := range tf.Templates {
			t.ID = strings.TrimSpace(t.ID)
			t.Prompt = strings.TrimSpace(t.Prompt)
			if t.ID == "" || t.Prompt == "" {
				return nil, fmt.Errorf("stages: template needs an id and a prompt")
			}
			if seen[t.ID] {
				return nil, fmt.Errorf("stages: duplicate template id %q", t.ID)
			}
			seen[t.ID] = true
			c.templates = append(c.templates, t)
		}
	}
	return c, nil
}

func (s Stage) normalized() Stage {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.Questions = append([]string(nil), s.Questions...)
	s.Suggestions = append([]string(nil), s.Suggestions...)
	return s
}

// Stages returns the stages in wizard order.
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Len returns the number of stages.
func (c *Catalog) Len() int { return len(c.stages) }

// First returns the first stage.
func (c *Catalog) First() Stage { return c.stages[0] }

// Last returns the final stage.
func (c *Catalog) Last() Stage { return c.stages[len(c.stages)-1] }

// Lookup finds a stage by id.
func (c *Catalog) Lookup(id string) (Stage, bool) {
	i, ok := c.index[id]
	if !ok {
		return Stage{}, false
	}
	return c.stages[i], true
}

// Index returns the zero-based position of id, or -1 if unknown.
func (c *Catalog) Index(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Next returns the stage after id. ok is false at the last stage.
func (c *Catalog) Next(id string) (Stage, bool) {
	i := c.Index(id)
	if i < 0 || i+1 >= len(c.stages) {
		return Stage{}, false
	}
	return c.stages[i+1], true
}

// Prev returns the stage before id. ok is false at the first stage.
func (c *Catalog) Prev(id string) (Stage, bool) {
	i := c.Index(id)
	if i <= 0 {
		return Stage{}, false
	}
	return c.stages[i-1], true
}

// IsLast reports whether id is the final stage.
func (c *Catalog) IsLast(id string) bool {
	return c.Index(id) == len(c.stages)-1
}

// Templates returns the example prompts in catalog order.
func (c *Catalog) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Template finds an example prompt by id.
func (c *Catalog) Template(id string) (Template, bool) {
	for _, t := range c.templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// ComposeGuidedInput builds a stage answer from picked suggestions and free
// text: "Selected: a, b. Additional details: x". Either part may be empty.
func ComposeGuidedInput(selected []string, details string) string {
	var picked []string
	for _, s := range selected {
		if s = strings.TrimSpace(s); s != "" {
			picked = append(picked, s)
		}
	}
	details = strings.TrimSpace(details)

	var b strings.Builder
	if len(picked) > 0 {
		b.WriteString("Selected: ")
		b.WriteString(strings.Join(picked, ", "))
	}
	if details != "" {
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		b.WriteString("Additional details: ")
		b.WriteString(details)
	}
	return b.String()
}
