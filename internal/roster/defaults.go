package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fallback is a stored ABCD/BCD answer for a topic.
type Fallback struct {
	ABCD []int `yaml:"abcd"`
	BCD  []int `yaml:"bcd"`
}

// DefaultsProvider supplies fallback numbers when a live classification of a
// topic comes back empty. It is consulted by the report layer only.
type DefaultsProvider interface {
	Fallback(topic string, hr int) (Fallback, bool)
}

type noDefaults struct{}

func (noDefaults) Fallback(string, int) (Fallback, bool) { return Fallback{}, false }

// NoDefaults never returns a fallback.
var NoDefaults DefaultsProvider = noDefaults{}

// StaticDefaults is a YAML-backed DefaultsProvider. Hour-specific entries win
// over entries under hour 0.
type StaticDefaults struct {
	Hours map[int]map[string]Fallback `yaml:"hours"`
}

func (s *StaticDefaults) Fallback(topic string, hr int) (Fallback, bool) {
	if s == nil {
		return Fallback{}, false
	}
	if f, ok := s.Hours[hr][topic]; ok {
		return f, true
	}
	if f, ok := s.Hours[0][topic]; ok {
		return f, true
	}
	return Fallback{}, false
}

// LoadDefaults reads fallback numbers from YAML. An empty path disables fallbacks.
func LoadDefaults(path string) (DefaultsProvider, error) {
	if strings.TrimSpace(path) == "" {
		return NoDefaults, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults %s: %w", path, err)
	}
	var s StaticDefaults
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing defaults %s: %w", path, err)
	}
	return &s, nil
}
