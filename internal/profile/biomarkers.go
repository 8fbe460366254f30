package profile

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed biomarker_table.yaml
var biomarkerTableYAML []byte

type markerEntry struct {
	Match       []string `yaml:"match"`
	Foods       []string `yaml:"foods"`
	Supplements []string `yaml:"supplements"`
}

type markerTable struct {
	Markers []markerEntry `yaml:"markers"`
}

var markerLookup markerTable

func init() {
	if err := yaml.Unmarshal(biomarkerTableYAML, &markerLookup); err != nil {
		panic(fmt.Sprintf("invalid biomarker table: %v", err))
	}
}

// deriveBiomarkerFlags scans lab results for non-optimal markers and maps
// each onto food/supplement suggestions via the lookup table. The marker
// name is matched by substring; the first table entry that matches wins.
func deriveBiomarkerFlags(labs *LabPanel) []BiomarkerFlag {
	var flags []BiomarkerFlag
	for _, result := range labs.Results {
		status := strings.ToLower(strings.TrimSpace(result.Status))
		if status == "" || status == "optimal" || status == "normal" {
			continue
		}

		flag := BiomarkerFlag{
			Marker:   result.Marker,
			Status:   status,
			Priority: flagPriority(result),
		}
		if entry, ok := lookupMarker(result.Marker); ok {
			flag.Foods = entry.Foods
			flag.Supplements = entry.Supplements
		}
		flags = append(flags, flag)
	}
	return flags
}

func lookupMarker(marker string) (markerEntry, bool) {
	name := strings.ToLower(marker)
	for _, entry := range markerLookup.Markers {
		for _, m := range entry.Match {
			if strings.Contains(name, m) {
				return entry, true
			}
		}
	}
	return markerEntry{}, false
}

func flagPriority(result LabResult) string {
	if result.Critical {
		return "critical"
	}
	status := strings.ToLower(result.Status)
	marker := strings.ToLower(result.Marker)
	if status == "deficient" ||
		strings.Contains(marker, "glucose") ||
		strings.Contains(marker, "hba1c") ||
		strings.Contains(marker, "a1c") {
		return "high"
	}
	return "medium"
}
