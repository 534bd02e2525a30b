package tools

// FieldType is the JSON Schema type of a tool argument.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
)

// Field describes one tool argument for callers discovering the tool. It
// carries no validation logic.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Nullable    bool
	Enum        []string
	Format      string
	Default     any
	Minimum     *float64
	Maximum     *float64
	MaxLength   int
}

func bound(v float64) *float64 { return &v }

// InputSchema renders fields as a JSON Schema object.
func InputSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := []string{}
	for _, f := range fields {
		props[f.Name] = f.schema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func (f Field) schema() map[string]any {
	s := map[string]any{}
	if f.Nullable {
		s["type"] = []string{string(f.Type), "null"}
	} else {
		s["type"] = string(f.Type)
	}
	if f.Description != "" {
		s["description"] = f.Description
	}
	if len(f.Enum) > 0 {
		s["enum"] = f.Enum
	}
	if f.Format != "" {
		s["format"] = f.Format
	}
	if f.Default != nil {
		s["default"] = f.Default
	}
	if f.Minimum != nil {
		s["minimum"] = *f.Minimum
	}
	if f.Maximum != nil {
		s["maximum"] = *f.Maximum
	}
	if f.MaxLength > 0 {
		s["maxLength"] = f.MaxLength
	}
	return s
}
