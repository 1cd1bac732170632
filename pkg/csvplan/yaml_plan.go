package csvplan

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// parseYAML reads a YAML lineup in one of two shapes: a bare sequence of
// rows, or a document whose channel and date apply to every row in items:
//
//	channel: tv-1
//	date: 2024-05-08
//	items:
//	  - title: Morning News
//	    start: "06:00"
//
// Row keys go through the same alias table as CSV headers. Scalars keep
// their source text, so "06:00" and 2024-05-08 are never reinterpreted.
func parseYAML(data []byte, opts Options) ([]Row, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("no data rows found")
	}

	items, defaults, err := lineupItems(doc.Content[0])
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("no data rows found")
	}

	aliases := buildAliasIndex(opts.HeaderAliases)
	var (
		rows []Row
		errs ValidationErrors
	)
	for i, item := range items {
		if item.Kind != yaml.MappingNode {
			errs = append(errs, ValidationError{Line: item.Line, Message: "row must be a mapping of column: value"})
			continue
		}
		fields := make(map[string]string, len(defaults)+len(item.Content)/2)
		for k, v := range defaults {
			fields[k] = v
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			canonical, ok := aliases[normalizeHeader(item.Content[j].Value)]
			if !ok {
				continue
			}
			if v := cleanValue(item.Content[j+1].Value); v != "" {
				fields[canonical] = v
			}
		}
		row, rowErrs := parseFields(fields, i+1, item.Line)
		errs = append(errs, rowErrs...)
		rows = append(rows, row)
	}

	if len(errs) > 0 {
		return rows, errs
	}
	return rows, nil
}

// lineupItems returns the row nodes of a lineup document and the column
// defaults declared next to them.
func lineupItems(root *yaml.Node) ([]*yaml.Node, map[string]string, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root.Content, nil, nil
	case yaml.MappingNode:
		defaults := make(map[string]string)
		var items []*yaml.Node
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, val := root.Content[i].Value, root.Content[i+1]
			switch normalizeHeader(key) {
			case "items", "rows":
				if val.Kind != yaml.SequenceNode {
					return nil, nil, fmt.Errorf("line %d: %s must be a list", val.Line, key)
				}
				items = val.Content
			case ColumnChannel, ColumnDate:
				defaults[normalizeHeader(key)] = cleanValue(val.Value)
			}
		}
		return items, defaults, nil
	}
	return nil, nil, fmt.Errorf("line %d: expected a list of rows or a mapping with items", root.Line)
}
