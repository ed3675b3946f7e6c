package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StandardElements is the element roster used by every built-in topic.
var StandardElements = []string{
	"Lagna",
	"Moon",
	"Hora Lagna",
	"Ghati Lagna",
	"Vighati Lagna",
	"Varnada Lagna",
	"Sree Lagna",
	"Pranapada Lagna",
	"Indu Lagna",
}

var divisions = []string{
	"D-1",
	"D-3 (trd)",
	"D-4",
	"D-5 (pv)",
	"D-7 (trd)",
	"D-9",
	"D-10 (trd)",
	"D-11",
	"D-12 (trd)",
	"D-27 (trd)",
	"D-30 (sh)",
	"D-60 (Trd)",
	"D-81",
	"D-108",
	"D-144",
}

type Topic struct {
	Name     string   `yaml:"name"`
	Elements []string `yaml:"elements"`
}

// Roster is the ordered list of topics and the element rows each one has.
// Topic names are matched verbatim.
type Roster struct {
	Topics []Topic `yaml:"topics"`
}

// Default returns the 30 built-in topics, Set-1 and Set-2 for every division.
func Default() Roster {
	var r Roster
	for _, d := range divisions {
		for _, set := range []string{"Set-1", "Set-2"} {
			r.Topics = append(r.Topics, Topic{
				Name:     fmt.Sprintf("%s %s Matrix", d, set),
				Elements: append([]string(nil), StandardElements...),
			})
		}
	}
	return r
}

// Load reads a roster from YAML. An empty path returns the built-in roster.
// Topics without an element list get the standard elements.
func Load(path string) (Roster, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("reading roster %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("parsing roster: %w", err)
	}
	seen := make(map[string]bool, len(r.Topics))
	for i := range r.Topics {
		name := strings.TrimSpace(r.Topics[i].Name)
		if name == "" {
			return Roster{}, fmt.Errorf("roster topic %d has no name", i+1)
		}
		if seen[name] {
			return Roster{}, fmt.Errorf("roster topic %q listed twice", name)
		}
		seen[name] = true
		r.Topics[i].Name = name
		if len(r.Topics[i].Elements) == 0 {
			r.Topics[i].Elements = append([]string(nil), StandardElements...)
		}
	}
	if len(r.Topics) == 0 {
		return Roster{}, fmt.Errorf("roster has no topics")
	}
	return r, nil
}

func (r Roster) Names() []string {
	out := make([]string, len(r.Topics))
	for i, t := range r.Topics {
		out[i] = t.Name
	}
	return out
}

func (r Roster) Elements(topic string) ([]string, bool) {
	for _, t := range r.Topics {
		if t.Name == topic {
			return t.Elements, true
		}
	}
	return nil, false
}

// Present filters the roster down to topics in available, keeping roster order.
func (r Roster) Present(available map[string]bool) []Topic {
	var out []Topic
	for _, t := range r.Topics {
		if available[t.Name] {
			out = append(out, t)
		}
	}
	return out
}
