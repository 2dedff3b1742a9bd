package domain

import (
	"fmt"
	"math"
	"slices"
)

// FieldKind discriminates the cases of the SchemaNode sum type.
type FieldKind int

const (
	// KindBoolean is a true/false leaf.
	KindBoolean FieldKind = iota
	// KindNumber is a numeric leaf, optionally restricted to whole numbers.
	KindNumber
	// KindString is a free-text leaf.
	KindString
	// KindEnum is a string leaf restricted to a fixed set of literals.
	KindEnum
	// KindGroup is a named, ordered mapping of child fields.
	KindGroup
	// KindList is a homogeneous list whose elements share one schema.
	KindList
	// KindOptional wraps another node and additionally accepts null.
	KindOptional
)

// String returns the lowercase name used in error messages and catalog files.
func (k FieldKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindGroup:
		return "group"
	case KindList:
		return "list"
	case KindOptional:
		return "optional"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SchemaNode describes one configurable settings field together with its
// default value. The set of implementations is closed: BooleanField,
// NumberField, StringField, EnumField, GroupField, ListField and
// OptionalField are the only cases.
type SchemaNode interface {
	// Kind reports which case of the union this node is.
	Kind() FieldKind

	// resolve validates a caller-supplied value against the node, or
	// substitutes the default when present is false. path is the dotted
	// location of the node and is used only for error reporting.
	resolve(path string, value any, present bool) (any, error)

	// defaultValue returns a freshly allocated copy of the node's default.
	defaultValue() any

	// validate appends schema invariant violations to verr.
	validate(path string, verr *ValidationError)

	// clone returns a deep copy that shares no mutable state with the node.
	clone() SchemaNode
}

var (
	_ SchemaNode = BooleanField{}
	_ SchemaNode = NumberField{}
	_ SchemaNode = StringField{}
	_ SchemaNode = EnumField{}
	_ SchemaNode = GroupField{}
	_ SchemaNode = ListField{}
	_ SchemaNode = OptionalField{}
)

// BooleanField is a boolean leaf.
type BooleanField struct {
	Default bool
}

// Kind implements SchemaNode.
func (BooleanField) Kind() FieldKind { return KindBoolean }

func (b BooleanField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return b.Default, nil
	}
	v, ok := value.(bool)
	if !ok {
		return nil, NewInvalidFieldTypeError(path, KindBoolean.String(), describeValue(value))
	}
	return v, nil
}

func (b BooleanField) defaultValue() any { return b.Default }

func (BooleanField) validate(string, *ValidationError) {}

func (b BooleanField) clone() SchemaNode { return b }

// NumberField is a numeric leaf. All numbers are normalised to float64.
// When Integer is set, non-whole values are rejected.
type NumberField struct {
	Default float64
	Integer bool
}

// Kind implements SchemaNode.
func (NumberField) Kind() FieldKind { return KindNumber }

func (n NumberField) expected() string {
	if n.Integer {
		return "integer"
	}
	return KindNumber.String()
}

func (n NumberField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return n.Default, nil
	}
	f, ok := toFloat64(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, NewInvalidFieldTypeError(path, n.expected(), describeValue(value))
	}
	if n.Integer && math.Trunc(f) != f {
		return nil, NewInvalidFieldTypeError(path, n.expected(), describeValue(value))
	}
	return f, nil
}

func (n NumberField) defaultValue() any { return n.Default }

func (n NumberField) validate(path string, verr *ValidationError) {
	if math.IsNaN(n.Default) || math.IsInf(n.Default, 0) {
		verr.AddError(fmt.Sprintf("%s: default must be a finite number", displayPath(path)))
		return
	}
	if n.Integer && math.Trunc(n.Default) != n.Default {
		verr.AddError(fmt.Sprintf("%s: default %v is not an integer", displayPath(path), n.Default))
	}
}

func (n NumberField) clone() SchemaNode { return n }

// StringField is a free-text leaf.
type StringField struct {
	Default string
}

// Kind implements SchemaNode.
func (StringField) Kind() FieldKind { return KindString }

func (s StringField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return s.Default, nil
	}
	v, ok := value.(string)
	if !ok {
		return nil, NewInvalidFieldTypeError(path, KindString.String(), describeValue(value))
	}
	return v, nil
}

func (s StringField) defaultValue() any { return s.Default }

func (StringField) validate(string, *ValidationError) {}

func (s StringField) clone() SchemaNode { return s }

// EnumField is a string leaf restricted to Allowed. Allowed keeps its
// declaration order for display; Default must be one of its members.
type EnumField struct {
	Allowed []string
	Default string
}

// Kind implements SchemaNode.
func (EnumField) Kind() FieldKind { return KindEnum }

// Allows reports whether value is one of the enum's literals.
func (e EnumField) Allows(value string) bool { return slices.Contains(e.Allowed, value) }

func (e EnumField) expected() string {
	return fmt.Sprintf("one of %q", e.Allowed)
}

func (e EnumField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return e.Default, nil
	}
	v, ok := value.(string)
	if !ok || !e.Allows(v) {
		return nil, NewInvalidFieldTypeError(path, e.expected(), describeValue(value))
	}
	return v, nil
}

func (e EnumField) defaultValue() any { return e.Default }

func (e EnumField) validate(path string, verr *ValidationError) {
	if len(e.Allowed) == 0 {
		verr.AddError(fmt.Sprintf("%s: enum declares no allowed values", displayPath(path)))
		return
	}
	seen := make(map[string]struct{}, len(e.Allowed))
	for _, v := range e.Allowed {
		if _, dup := seen[v]; dup {
			verr.AddError(fmt.Sprintf("%s: enum value %q declared twice", displayPath(path), v))
		}
		seen[v] = struct{}{}
	}
	if !e.Allows(e.Default) {
		verr.AddError(fmt.Sprintf("%s: default %q is not one of %q", displayPath(path), e.Default, e.Allowed))
	}
}

func (e EnumField) clone() SchemaNode {
	return EnumField{Allowed: slices.Clone(e.Allowed), Default: e.Default}
}

// Field is a named child of a GroupField.
type Field struct {
	// Name is the settings key. It must be unique within its group and
	// must not contain '.', '[' or ']' since those delimit paths.
	Name string
	// Description is human-readable help text; it never affects resolution.
	Description string
	// Node is the schema of the field's value.
	Node SchemaNode
}

// GroupField is an ordered mapping from field name to child schema.
// The top-level settings schema of every evaluator is a GroupField.
// A GroupField with no children accepts only an empty object.
type GroupField struct {
	Fields []Field
}

// NewGroupField returns a GroupField with the given children in order.
func NewGroupField(fields ...Field) GroupField {
	return GroupField{Fields: fields}
}

// Kind implements SchemaNode.
func (GroupField) Kind() FieldKind { return KindGroup }

// Child returns the child field named name.
func (g GroupField) Child(name string) (Field, bool) {
	for _, f := range g.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the child names in declaration order.
func (g GroupField) Names() []string {
	names := make([]string, len(g.Fields))
	for i, f := range g.Fields {
		names[i] = f.Name
	}
	return names
}

// IsEmpty reports whether the group declares no children.
func (g GroupField) IsEmpty() bool { return len(g.Fields) == 0 }

func (g GroupField) resolve(path string, value any, present bool) (any, error) {
	var supplied map[string]any
	if present {
		m, ok := asMap(value)
		if !ok {
			return nil, NewInvalidFieldTypeError(path, KindGroup.String(), describeValue(value))
		}
		supplied = m
	}

	// Report the lexically smallest unknown key so failures are stable
	// regardless of map iteration order.
	var unknown string
	for key := range supplied {
		if _, ok := g.Child(key); ok {
			continue
		}
		if unknown == "" || key < unknown {
			unknown = key
		}
	}
	if unknown != "" {
		return nil, NewUnknownFieldError(joinPath(path, unknown), unknown, Suggest(unknown, g.Names(), 3))
	}

	out := make(map[string]any, len(g.Fields))
	for _, f := range g.Fields {
		sub, ok := supplied[f.Name]
		v, err := f.Node.resolve(joinPath(path, f.Name), sub, ok)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func (g GroupField) defaultValue() any {
	out := make(map[string]any, len(g.Fields))
	for _, f := range g.Fields {
		out[f.Name] = f.Node.defaultValue()
	}
	return out
}

func (g GroupField) validate(path string, verr *ValidationError) {
	seen := make(map[string]struct{}, len(g.Fields))
	for i, f := range g.Fields {
		switch {
		case f.Name == "":
			verr.AddError(fmt.Sprintf("%s: field %d has an empty name", displayPath(path), i))
			continue
		case !validFieldName(f.Name):
			verr.AddError(fmt.Sprintf("%s: field name %q contains a path delimiter", displayPath(path), f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			verr.AddError(fmt.Sprintf("%s: field %q declared twice", displayPath(path), f.Name))
		}
		seen[f.Name] = struct{}{}

		childPath := joinPath(path, f.Name)
		if f.Node == nil {
			verr.AddError(fmt.Sprintf("%s: field has no schema", childPath))
			continue
		}
		f.Node.validate(childPath, verr)
	}
}

func (g GroupField) clone() SchemaNode { return g.cloneGroup() }

func (g GroupField) cloneGroup() GroupField {
	if g.Fields == nil {
		return GroupField{}
	}
	fields := make([]Field, len(g.Fields))
	for i, f := range g.Fields {
		fields[i] = Field{Name: f.Name, Description: f.Description}
		if f.Node != nil {
			fields[i].Node = f.Node.clone()
		}
	}
	return GroupField{Fields: fields}
}

// ListField is a homogeneous list. Each supplied element is resolved
// against Item, so element groups receive their own defaults.
type ListField struct {
	Item    SchemaNode
	Default []any
}

// Kind implements SchemaNode.
func (ListField) Kind() FieldKind { return KindList }

func (l ListField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return l.defaultValue(), nil
	}
	items, ok := asSlice(value)
	if !ok {
		return nil, NewInvalidFieldTypeError(path, KindList.String(), describeValue(value))
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := l.Item.resolve(fmt.Sprintf("%s[%d]", path, i), item, true)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l ListField) defaultValue() any {
	out := make([]any, len(l.Default))
	for i, v := range l.Default {
		out[i] = normaliseDefault(l.Item, v)
	}
	return out
}

func (l ListField) validate(path string, verr *ValidationError) {
	if l.Item == nil {
		verr.AddError(fmt.Sprintf("%s: list declares no item schema", displayPath(path)))
		return
	}
	l.Item.validate(path+"[]", verr)
	for i, v := range l.Default {
		if _, err := l.Item.resolve(fmt.Sprintf("%s[%d]", path, i), v, true); err != nil {
			verr.AddError(fmt.Sprintf("%s: invalid default element: %v", displayPath(path), err))
		}
	}
}

func (l ListField) clone() SchemaNode {
	out := ListField{Default: l.defaultValue().([]any)}
	if l.Item != nil {
		out.Item = l.Item.clone()
	}
	return out
}

// OptionalField wraps Inner and additionally accepts an explicit null.
// Default is null unless set, in which case it must satisfy Inner.
type OptionalField struct {
	Inner   SchemaNode
	Default any
}

// Kind implements SchemaNode.
func (OptionalField) Kind() FieldKind { return KindOptional }

func (o OptionalField) resolve(path string, value any, present bool) (any, error) {
	if !present {
		return o.defaultValue(), nil
	}
	if value == nil {
		return nil, nil
	}
	return o.Inner.resolve(path, value, true)
}

func (o OptionalField) defaultValue() any { return normaliseDefault(o.Inner, o.Default) }

// normaliseDefault passes a declared default through node so that element
// groups are filled in and numbers become float64. Defaults that node
// rejects are left for validate to report and are returned as copies.
func normaliseDefault(node SchemaNode, value any) any {
	if node == nil || value == nil {
		return cloneValue(value)
	}
	v, err := node.resolve("", value, true)
	if err != nil {
		return cloneValue(value)
	}
	return v
}

func (o OptionalField) validate(path string, verr *ValidationError) {
	if o.Inner == nil {
		verr.AddError(fmt.Sprintf("%s: optional declares no inner schema", displayPath(path)))
		return
	}
	if o.Inner.Kind() == KindOptional {
		verr.AddError(fmt.Sprintf("%s: optional fields cannot be nested", displayPath(path)))
	}
	o.Inner.validate(path, verr)
	if o.Default != nil {
		if _, err := o.Inner.resolve(path, o.Default, true); err != nil {
			verr.AddError(fmt.Sprintf("%s: invalid default: %v", displayPath(path), err))
		}
	}
}

func (o OptionalField) clone() SchemaNode {
	out := OptionalField{Default: cloneValue(o.Default)}
	if o.Inner != nil {
		out.Inner = o.Inner.clone()
	}
	return out
}

// ValidateSchema checks the invariants of a settings schema: unique,
// well-formed field names, enum defaults drawn from their allowed sets,
// and list/optional defaults that satisfy their element schema.
// It returns a *ValidationError listing every violation, or nil.
func ValidateSchema(entity string, schema GroupField) error {
	verr := NewValidationError(entity)
	schema.validate("", verr)
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// CloneSchema returns a deep copy of schema.
func CloneSchema(schema GroupField) GroupField { return schema.cloneGroup() }

// CloneNode returns a deep copy of node.
func CloneNode(node SchemaNode) SchemaNode {
	if node == nil {
		return nil
	}
	return node.clone()
}
