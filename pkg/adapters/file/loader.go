// Package file reads dialogue graphs from YAML or JSON documents and keeps
// results as JSON files.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned for documents without steps.
var ErrEmptyDocument = errors.New("graph document has no steps")

// Document is the on-disk form of a dialogue graph.
//
//	root: start
//	persona: {name: Alex, role: coworker}
//	steps:
//	  - id: start
//	    actor_line: "Hey, got a minute?"
//	    options:
//	      - {event_id: yes, label: "Sure", next_step_id: talk, score_deltas: {empathy: 1}}
type Document struct {
	Title    string          `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Root     string          `json:"root,omitempty" yaml:"root,omitempty" mapstructure:"root"`
	Persona  domain.Persona  `json:"persona,omitempty" yaml:"persona,omitempty" mapstructure:"persona"`
	Scenario domain.Scenario `json:"scenario,omitempty" yaml:"scenario,omitempty" mapstructure:"scenario"`
	Steps    []domain.Step   `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// Decode parses a YAML or JSON document. Scalars are weakly typed, so
// `clarity: "1"` reads as 1.
func Decode(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse graph document: %w", err)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, ErrEmptyDocument
	}
	return &doc, nil
}

// Marshal encodes a document as YAML, or JSON when asJSON is set.
func Marshal(doc *Document, asJSON bool) ([]byte, error) {
	if asJSON {
		return json.MarshalIndent(doc, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode graph document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RootID returns the explicit root or the first step.
func (d *Document) RootID() string {
	if d.Root != "" {
		return d.Root
	}
	if len(d.Steps) > 0 {
		return d.Steps[0].ID
	}
	return ""
}

// StepList returns the steps with the document persona and scenario folded
// into the root step metadata. Keys already set on the step win.
func (d *Document) StepList() []domain.Step {
	steps := make([]domain.Step, len(d.Steps))
	copy(steps, d.Steps)

	root := d.RootID()
	for i := range steps {
		if steps[i].ID != root {
			continue
		}
		meta := make(map[string]string, len(steps[i].Metadata)+6)
		for k, v := range map[string]string{
			domain.MetaPersonaName:        d.Persona.Name,
			domain.MetaPersonaRole:        d.Persona.Role,
			domain.MetaPersonaPersonality: d.Persona.Personality,
			domain.MetaScenarioTitle:      d.Scenario.Title,
			domain.MetaScenarioSetting:    d.Scenario.Setting,
			domain.MetaScenarioObjective:  d.Scenario.Objective,
		} {
			if v != "" {
				meta[k] = v
			}
		}
		for k, v := range steps[i].Metadata {
			meta[k] = v
		}
		if len(meta) > 0 {
			steps[i].Metadata = meta
		}
		break
	}
	return steps
}

// Loader implements ports.StepLoader over a graph file.
type Loader struct {
	Path string
}

// NewLoader creates a loader for the file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load reads and decodes the file.
func (l *Loader) Load() ([]domain.Step, string, error) {
	doc, err := ReadFile(l.Path)
	if err != nil {
		return nil, "", err
	}
	return doc.StepList(), doc.RootID(), nil
}

// ReadFile reads a graph document from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteFile writes a document, as JSON when path ends in ".json".
func WriteFile(path string, doc *Document) error {
	data, err := Marshal(doc, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ ports.StepLoader = (*Loader)(nil)
