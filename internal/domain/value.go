package domain

import "encoding/json"

// ValueKind is the tag of the component-model value tree exchanged over
// the Component calling convention, per the external interface's Value
// tagged-tree encoding.
type ValueKind string

const (
	KindBool   ValueKind = "Bool"
	KindS8     ValueKind = "S8"
	KindS16    ValueKind = "S16"
	KindS32    ValueKind = "S32"
	KindS64    ValueKind = "S64"
	KindU8     ValueKind = "U8"
	KindU16    ValueKind = "U16"
	KindU32    ValueKind = "U32"
	KindU64    ValueKind = "U64"
	KindF32    ValueKind = "F32"
	KindF64    ValueKind = "F64"
	KindChar   ValueKind = "Char"
	KindString ValueKind = "String"
	KindList   ValueKind = "List"
	KindRecord ValueKind = "Record"
	KindVariant ValueKind = "Variant"
	KindTuple  ValueKind = "Tuple"
	KindOption ValueKind = "Option"
	KindResult ValueKind = "Result"
	KindFlags  ValueKind = "Flags"
	KindEnum   ValueKind = "Enum"
)

// Value is a single node of the tagged value tree. Exactly the fields
// relevant to Kind are populated; json.RawMessage holds the scalar for
// the numeric/string/bool kinds so a single struct covers every variant
// without needing Go generics or an interface hierarchy.
type Value struct {
	Kind ValueKind `json:"kind"`

	// Scalar payload for Bool/S*/U*/F*/Char/String.
	Scalar json.RawMessage `json:"scalar,omitempty"`

	// Items for List/Tuple; Fields for Record (ordered by field name);
	// present for Flags as the set of enabled flag names.
	Items  []Value  `json:"items,omitempty"`
	Fields []Field  `json:"fields,omitempty"`
	Names  []string `json:"names,omitempty"`

	// Variant/Enum case selector.
	Case string `json:"case,omitempty"`
	// Variant payload (nil for unit cases); also used for Option's Some
	// payload and Result's Ok/Err payload.
	Payload *Value `json:"payload,omitempty"`
	// IsSome/IsOk discriminate Option/Result without a second Kind.
	IsSome bool `json:"is_some,omitempty"`
	IsOk   bool `json:"is_ok,omitempty"`
}

// Field is one named member of a Record value.
type Field struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

func scalar(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func Bool(v bool) Value     { return Value{Kind: KindBool, Scalar: scalar(v)} }
func S32(v int32) Value     { return Value{Kind: KindS32, Scalar: scalar(v)} }
func S64(v int64) Value     { return Value{Kind: KindS64, Scalar: scalar(v)} }
func U32(v uint32) Value    { return Value{Kind: KindU32, Scalar: scalar(v)} }
func U64(v uint64) Value    { return Value{Kind: KindU64, Scalar: scalar(v)} }
func F64(v float64) Value   { return Value{Kind: KindF64, Scalar: scalar(v)} }
func Str(v string) Value    { return Value{Kind: KindString, Scalar: scalar(v)} }
func ListOf(items ...Value) Value { return Value{Kind: KindList, Items: items} }
func TupleOf(items ...Value) Value { return Value{Kind: KindTuple, Items: items} }

func OptionSome(v Value) Value { return Value{Kind: KindOption, IsSome: true, Payload: &v} }
func OptionNone() Value        { return Value{Kind: KindOption, IsSome: false} }

func ResultOk(v Value) Value  { return Value{Kind: KindResult, IsOk: true, Payload: &v} }
func ResultErr(v Value) Value { return Value{Kind: KindResult, IsOk: false, Payload: &v} }

// AsString decodes a String-kind Value's scalar payload.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v.Scalar, &s); err != nil {
		return "", false
	}
	return s, true
}
