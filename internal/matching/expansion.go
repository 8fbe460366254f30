package matching

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed allergen_table.yaml
var allergenTableYAML []byte

type expansionTable struct {
	Expansions map[string][]string `yaml:"expansions"`
}

var allergenExpansions expansionTable

func init() {
	if err := yaml.Unmarshal(allergenTableYAML, &allergenExpansions); err != nil {
		panic(fmt.Sprintf("invalid allergen table: %v", err))
	}
}

// ExpandAllergens turns the user's allergen/intolerance keywords into the
// full synonym set used for hard filtering. Unknown keywords expand to
// themselves so nothing the user names is ever dropped.
func ExpandAllergens(keywords []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, kw := range keywords {
		normalized := strings.ToLower(strings.TrimSpace(kw))
		add(normalized)
		for _, syn := range allergenExpansions.Expansions[normalized] {
			add(syn)
		}
	}
	return out
}
