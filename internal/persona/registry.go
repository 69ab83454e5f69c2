// Package persona maps agent names to the voice profiles used in seller
// prompts. Profiles live in an embedded YAML file so product can tune the
// voices without code changes.
package persona

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/personas.yaml
var configFiles embed.FS

// Persona is one seller voice profile.
type Persona struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Aliases     []string `yaml:"aliases"`
	Voice       string   `yaml:"voice"`
}

type configFile struct {
	Default  string    `yaml:"default"`
	Personas []Persona `yaml:"personas"`
}

// Registry resolves agent names to personas.
type Registry struct {
	personas []Persona
	fallback *Persona
}

// NewRegistry loads the embedded persona configuration.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/personas.yaml")
	if err != nil {
		return nil, fmt.Errorf("read personas config: %w", err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal personas config: %w", err)
	}
	if len(cfg.Personas) == 0 {
		return nil, fmt.Errorf("personas config is empty")
	}

	r := &Registry{personas: cfg.Personas}
	for i := range r.personas {
		if r.personas[i].ID == cfg.Default {
			r.fallback = &r.personas[i]
		}
	}
	if r.fallback == nil {
		r.fallback = &r.personas[0]
	}

	return r, nil
}

// ForAgentName picks the persona whose alias appears in the (already
// lower-cased) agent name, falling back to the default persona.
func (r *Registry) ForAgentName(name string) *Persona {
	lower := strings.ToLower(name)
	for i := range r.personas {
		for _, alias := range r.personas[i].Aliases {
			if strings.Contains(lower, alias) {
				return &r.personas[i]
			}
		}
	}
	return r.fallback
}
