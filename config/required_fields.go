package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ibflow/contracts"
	"ibflow/models"
)

// RequiredFields is the per-security-type table of identity fields a
// contract query needs. It implements contracts.RequiredFieldsProvider.
type RequiredFields struct {
	fields map[models.SecType][]contracts.RequiredField
}

// fieldEntry is one entry of the yaml table: either a bare field name
// or a single-pair mapping of name to fallback default.
type fieldEntry struct {
	Name    string
	Default string
}

func (f *fieldEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&f.Name)
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		if len(m) != 1 {
			return fmt.Errorf("required field entry must hold exactly one name")
		}
		for name, def := range m {
			f.Name, f.Default = name, def
		}
		return nil
	default:
		return fmt.Errorf("unsupported required field entry on line %d", node.Line)
	}
}

// DefaultRequiredFields returns the built-in table covering the common
// security types.
func DefaultRequiredFields() *RequiredFields {
	return &RequiredFields{fields: map[models.SecType][]contracts.RequiredField{
		models.SecTypeStock: {
			{Name: "symbol"},
			{Name: "currency", Default: "USD"},
			{Name: "exchange", Default: "SMART"},
		},
		models.SecTypeOption: {
			{Name: "symbol"},
			{Name: "expiry"},
			{Name: "strike"},
			{Name: "right"},
			{Name: "multiplier", Default: "100"},
			{Name: "currency", Default: "USD"},
			{Name: "exchange", Default: "SMART"},
		},
		models.SecTypeFuture: {
			{Name: "symbol"},
			{Name: "expiry"},
			{Name: "currency", Default: "USD"},
			{Name: "exchange"},
		},
		models.SecTypeForex: {
			{Name: "symbol"},
			{Name: "currency"},
			{Name: "exchange", Default: "IDEALPRO"},
		},
		models.SecTypeIndex: {
			{Name: "symbol"},
			{Name: "currency", Default: "USD"},
			{Name: "exchange"},
		},
	}}
}

// LoadRequiredFields reads a yaml required field table. Security types
// absent from the file keep their built-in defaults.
func LoadRequiredFields(path string) (*RequiredFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read required fields file: %w", err)
	}

	var raw struct {
		RequiredFields map[string][]fieldEntry `yaml:"required_fields"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse required fields file: %w", err)
	}

	table := DefaultRequiredFields()
	for secType, entries := range raw.RequiredFields {
		fields := make([]contracts.RequiredField, 0, len(entries))
		for _, entry := range entries {
			if entry.Name == "" {
				return nil, fmt.Errorf("empty required field name for %s", secType)
			}
			fields = append(fields, contracts.RequiredField{Name: entry.Name, Default: entry.Default})
		}
		table.fields[models.SecType(secType)] = fields
	}
	return table, nil
}

// RequiredFields returns the field set for secType, reporting false
// for security types the table does not cover.
func (r *RequiredFields) RequiredFields(secType models.SecType) ([]contracts.RequiredField, bool) {
	fields, ok := r.fields[secType]
	return fields, ok
}
