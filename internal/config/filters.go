package config

import (
	"fmt"
	"os"

	"eventstream/internal/filter"
	"eventstream/internal/models"

	"gopkg.in/yaml.v3"
)

// FilterFile is the YAML layout of FILTERS_FILE:
//
//	filters:
//	  - type: contract
//	    contract_ids: [CA...]
//	    topics:
//	      - ["symbol:transfer", "*", "**"]
type FilterFile struct {
	Filters []FilterEntry `yaml:"filters"`
}

// FilterEntry is one event filter of a FilterFile
type FilterEntry struct {
	Type        string     `yaml:"type"`
	ContractIDs []string   `yaml:"contract_ids"`
	Topics      [][]string `yaml:"topics"`
}

// LoadFilters reads and validates a filter file. An empty path yields no filters.
func LoadFilters(path string) ([]*filter.EventFilter, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}
	return ParseFilters(raw)
}

// ParseFilters decodes the YAML form of a filter set
func ParseFilters(raw []byte) ([]*filter.EventFilter, error) {
	var file FilterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse filter file: %w", err)
	}

	filters := make([]*filter.EventFilter, 0, len(file.Filters))
	for i, entry := range file.Filters {
		spec := filter.Spec{ContractIDs: entry.ContractIDs}
		if entry.Type != "" {
			t, err := models.ParseEventType(entry.Type)
			if err != nil {
				return nil, fmt.Errorf("filter %d: %w", i, err)
			}
			spec.Type = t
		}
		for j, segments := range entry.Topics {
			tf, err := filter.ParseTopicFilter(segments)
			if err != nil {
				return nil, fmt.Errorf("filter %d topic %d: %w", i, j, err)
			}
			spec.Topics = append(spec.Topics, tf)
		}

		f, err := filter.NewEventFilter(spec)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		filters = append(filters, f)
	}

	if err := filter.ValidateSet(filters); err != nil {
		return nil, err
	}
	return filters, nil
}
