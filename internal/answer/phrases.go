package answer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var defaultPhrasesYAML []byte

// Phrases is the versioned list of "no information found" markers.
type Phrases struct {
	Version int      `yaml:"version"`
	Notice  string   `yaml:"notice"`
	Strong  []string `yaml:"strong"`
	Phrases []string `yaml:"phrases"`
}

// DefaultPhrases returns the built-in phrase list.
func DefaultPhrases() *Phrases {
	p, err := ParsePhrases(defaultPhrasesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded phrases.yaml: %v", err))
	}
	return p
}

// LoadPhrases reads a phrase list from path, or the built-in one when path is empty.
func LoadPhrases(path string) (*Phrases, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPhrases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrases file: %w", err)
	}
	return ParsePhrases(data)
}

func ParsePhrases(data []byte) (*Phrases, error) {
	p := &Phrases{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode phrases: %w", err)
	}
	if len(p.Phrases) == 0 {
		return nil, fmt.Errorf("phrases list is empty")
	}
	p.Phrases = lowerAll(p.Phrases)
	p.Strong = lowerAll(p.Strong)
	return p, nil
}

// DeniesCoverage reports whether answer contains any no-information phrase.
func (p *Phrases) DeniesCoverage(answer string) bool {
	return containsAny(strings.ToLower(answer), p.Phrases)
}

// HasStrongMarker reports whether answer already states plainly that nothing was found.
func (p *Phrases) HasStrongMarker(answer string) bool {
	return containsAny(strings.ToLower(answer), p.Strong)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
