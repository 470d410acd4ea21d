package digest

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Glossary is the team's term dictionary, loaded from glossary.yml and
// injected into the compose prompt so the model keeps canonical spellings.
type Glossary struct {
	Terms []GlossaryTerm `yaml:"terms"`
}

// GlossaryTerm is one dictionary entry.
type GlossaryTerm struct {
	Key      string   `yaml:"key"`
	Desc     string   `yaml:"desc"`
	Synonyms []string `yaml:"synonyms"`
	Weight   float64  `yaml:"weight"`
}

// LoadGlossary reads a glossary YAML file. Missing or malformed files
// degrade to an empty glossary.
func LoadGlossary(path string) Glossary {
	b, err := os.ReadFile(path)
	if err != nil {
		return Glossary{}
	}
	var g Glossary
	if err := yaml.Unmarshal(b, &g); err != nil {
		return Glossary{}
	}
	return g
}

// DictionaryLines renders the glossary as prompt-dictionary lines, capped at
// max. A term's description wins over its synonym list.
func (g Glossary) DictionaryLines(max int) []string {
	lines := make([]string, 0, len(g.Terms))
	for _, term := range g.Terms {
		key := strings.TrimSpace(term.Key)
		if key == "" {
			continue
		}
		detail := strings.TrimSpace(term.Desc)
		if detail == "" && len(term.Synonyms) > 0 {
			syns := term.Synonyms
			if len(syns) > 5 {
				syns = syns[:5]
			}
			detail = strings.Join(syns, ", ")
		}
		if detail == "" {
			lines = append(lines, "- "+key)
		} else {
			lines = append(lines, "- "+key+": "+detail)
		}
	}
	if max > 0 && len(lines) > max {
		lines = lines[:max]
	}
	return lines
}
