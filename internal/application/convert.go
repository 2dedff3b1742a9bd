package application

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

// Field type names used in catalog files.
const (
	fieldTypeBoolean = "boolean"
	fieldTypeNumber  = "number"
	fieldTypeInteger = "integer"
	fieldTypeString  = "string"
	fieldTypeEnum    = "enum"
	fieldTypeGroup   = "group"
	fieldTypeList    = "list"
)

// ToDescriptor converts one catalog row into a descriptor. Defaults are
// normalised (numbers become float64) and checked against their field
// type; schema invariants are left to domain.ValidateSchema.
func ToDescriptor(cfg EvaluatorConfig) (domain.EvaluatorDescriptor, error) {
	settings, err := toGroup(cfg.Settings, "")
	if err != nil {
		return domain.EvaluatorDescriptor{}, fmt.Errorf("evaluator %s: %w", cfg.ID, err)
	}

	name := cfg.Name
	if name == "" {
		name = DisplayName(cfg.ID)
	}

	d := domain.EvaluatorDescriptor{
		ID:          cfg.ID,
		Name:        name,
		Description: cfg.Description,
		Category:    domain.Category(cfg.Category),
		DocsURL:     cfg.DocsURL,
		IsGuardrail: cfg.IsGuardrail,
		Settings:    settings,
	}
	if cfg.Result != nil {
		if cfg.Result.Score != nil {
			d.Result.Score = &domain.ResultField{Description: cfg.Result.Score.Description}
		}
		if cfg.Result.Passed != nil {
			d.Result.Passed = &domain.ResultField{Description: cfg.Result.Passed.Description}
		}
	}
	return d, nil
}

// FromDescriptor converts a descriptor back into its catalog row.
func FromDescriptor(d domain.EvaluatorDescriptor) EvaluatorConfig {
	cfg := EvaluatorConfig{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    string(d.Category),
		DocsURL:     d.DocsURL,
		IsGuardrail: d.IsGuardrail,
		Settings:    fromGroup(d.Settings),
	}
	if !d.Result.IsEmpty() {
		cfg.Result = &ResultConfig{}
		if d.Result.Score != nil {
			cfg.Result.Score = &ResultFieldConfig{Description: d.Result.Score.Description}
		}
		if d.Result.Passed != nil {
			cfg.Result.Passed = &ResultFieldConfig{Description: d.Result.Passed.Description}
		}
	}
	return cfg
}

// DisplayName derives a title-cased name from an identifier, e.g.
// "example/word_count" becomes "Example Word Count".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func toGroup(fields []FieldConfig, path string) (domain.GroupField, error) {
	if len(fields) == 0 {
		return domain.GroupField{}, nil
	}
	children := make([]domain.Field, 0, len(fields))
	for _, fc := range fields {
		if fc.Name == "" {
			return domain.GroupField{}, fmt.Errorf("%s: field without a name", displayPath(path))
		}
		childPath := joinPath(path, fc.Name)
		node, err := toNode(fc, childPath)
		if err != nil {
			return domain.GroupField{}, err
		}
		children = append(children, domain.Field{
			Name:        fc.Name,
			Description: fc.Description,
			Node:        node,
		})
	}
	return domain.NewGroupField(children...), nil
}

func toNode(fc FieldConfig, path string) (domain.SchemaNode, error) {
	inner, err := toBaseNode(fc, path)
	if err != nil {
		return nil, err
	}

	if fc.Optional {
		opt := domain.OptionalField{Inner: inner}
		if fc.Default != nil {
			v, err := domain.ResolveNode(inner, path, fc.Default)
			if err != nil {
				return nil, fmt.Errorf("invalid default: %w", err)
			}
			opt.Default = v
		}
		return opt, nil
	}
	return inner, nil
}

// toBaseNode builds the node for fc ignoring its Optional flag. For
// optional fields the default is applied to the wrapper instead.
func toBaseNode(fc FieldConfig, path string) (domain.SchemaNode, error) {
	def := fc.Default
	if fc.Optional {
		def = nil
	}

	if fc.Type != fieldTypeEnum && len(fc.Values) > 0 {
		return nil, fmt.Errorf("%s: values are only allowed on enum fields", path)
	}
	if fc.Type != fieldTypeGroup && len(fc.Fields) > 0 {
		return nil, fmt.Errorf("%s: fields are only allowed on group fields", path)
	}
	if fc.Type != fieldTypeList && fc.Items != nil {
		return nil, fmt.Errorf("%s: items are only allowed on list fields", path)
	}

	switch fc.Type {
	case fieldTypeBoolean:
		node := domain.BooleanField{}
		v, err := resolveDefault(node, path, def)
		if err != nil || v == nil {
			return node, err
		}
		node.Default = v.(bool)
		return node, nil

	case fieldTypeNumber, fieldTypeInteger:
		node := domain.NumberField{Integer: fc.Type == fieldTypeInteger}
		v, err := resolveDefault(node, path, def)
		if err != nil || v == nil {
			return node, err
		}
		node.Default = v.(float64)
		return node, nil

	case fieldTypeString:
		node := domain.StringField{}
		v, err := resolveDefault(node, path, def)
		if err != nil || v == nil {
			return node, err
		}
		node.Default = v.(string)
		return node, nil

	case fieldTypeEnum:
		if len(fc.Values) == 0 {
			return nil, fmt.Errorf("%s: enum declares no values", path)
		}
		node := domain.EnumField{Allowed: append([]string(nil), fc.Values...), Default: fc.Values[0]}
		v, err := resolveDefault(node, path, def)
		if err != nil || v == nil {
			return node, err
		}
		node.Default = v.(string)
		return node, nil

	case fieldTypeGroup:
		if def != nil {
			return nil, fmt.Errorf("%s: group defaults are derived from their fields", path)
		}
		return toGroup(fc.Fields, path)

	case fieldTypeList:
		if fc.Items == nil {
			return nil, fmt.Errorf("%s: list declares no items", path)
		}
		item, err := toNode(*fc.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		node := domain.ListField{Item: item, Default: []any{}}
		v, err := resolveDefault(node, path, def)
		if err != nil || v == nil {
			return node, err
		}
		node.Default = v.([]any)
		return node, nil

	default:
		return nil, fmt.Errorf("%s: unknown field type %q", path, fc.Type)
	}
}

func resolveDefault(node domain.SchemaNode, path string, def any) (any, error) {
	if def == nil {
		return nil, nil
	}
	v, err := domain.ResolveNode(node, path, def)
	if err != nil {
		return nil, fmt.Errorf("invalid default: %w", err)
	}
	return v, nil
}

func fromGroup(g domain.GroupField) []FieldConfig {
	if g.IsEmpty() {
		return nil
	}
	out := make([]FieldConfig, 0, len(g.Fields))
	for _, f := range g.Fields {
		fc := fromNode(f.Node)
		fc.Name = f.Name
		fc.Description = f.Description
		out = append(out, fc)
	}
	return out
}

func fromNode(node domain.SchemaNode) FieldConfig {
	switch n := node.(type) {
	case domain.BooleanField:
		return FieldConfig{Type: fieldTypeBoolean, Default: n.Default}
	case domain.NumberField:
		if n.Integer {
			return FieldConfig{Type: fieldTypeInteger, Default: n.Default}
		}
		return FieldConfig{Type: fieldTypeNumber, Default: n.Default}
	case domain.StringField:
		return FieldConfig{Type: fieldTypeString, Default: n.Default}
	case domain.EnumField:
		return FieldConfig{Type: fieldTypeEnum, Values: append([]string(nil), n.Allowed...), Default: n.Default}
	case domain.GroupField:
		return FieldConfig{Type: fieldTypeGroup, Fields: fromGroup(n)}
	case domain.ListField:
		item := fromNode(n.Item)
		fc := FieldConfig{Type: fieldTypeList, Items: &item}
		if len(n.Default) > 0 {
			fc.Default = n.Default
		}
		return fc
	case domain.OptionalField:
		fc := fromNode(n.Inner)
		fc.Optional = true
		fc.Default = n.Default
		return fc
	default:
		return FieldConfig{}
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
