package automation

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed tones.yaml
var tonesYAML []byte

// DefaultTone is used when a policy names no tone or an unknown one
const DefaultTone = "friendly"

// Tone is one reply voice: the system prompt the generator speaks with
type Tone struct {
	Name        string `yaml:"-"`
	Description string `yaml:"description"`
	System      string `yaml:"system"`
}

// ToneSet holds the available reply voices
type ToneSet struct {
	tones map[string]Tone
}

// LoadTones parses the embedded tone definitions
func LoadTones() (*ToneSet, error) {
	return ParseTones(tonesYAML)
}

// ParseTones parses tone definitions from YAML
func ParseTones(data []byte) (*ToneSet, error) {
	raw := map[string]Tone{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tone definitions: %w", err)
	}
	if _, ok := raw[DefaultTone]; !ok {
		return nil, fmt.Errorf("tone definitions missing default tone %q", DefaultTone)
	}

	for name, tone := range raw {
		tone.Name = name
		raw[name] = tone
	}
	return &ToneSet{tones: raw}, nil
}

// Get returns the named tone, falling back to the default for unknown names
func (s *ToneSet) Get(name string) Tone {
	if tone, ok := s.tones[name]; ok {
		return tone
	}
	return s.tones[DefaultTone]
}

// Names lists the available tone names sorted
func (s *ToneSet) Names() []string {
	names := make([]string, 0, len(s.tones))
	for name := range s.tones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
