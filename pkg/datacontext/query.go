package datacontext

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type ConditionKind string

const (
	CondEq       ConditionKind = "eq"
	CondNe       ConditionKind = "ne"
	CondContains ConditionKind = "contains"
)

// Condition compares the JSON value at Path. Paths are dot separated and use
// the json field names of the document.
type Condition struct {
	Kind  ConditionKind
	Path  string
	Value any

	norm any
}

// Filter selects documents of type T. Conditions are evaluated against the
// stored JSON so gateways can push them down; predicates run on decoded
// values and must not mutate their argument. The zero Filter matches all.
type Filter[T Entity] struct {
	conds []Condition
	preds []func(T) bool
}

func All[T Entity]() Filter[T] {
	return Filter[T]{}
}

func ByID[T Entity](id string) Filter[T] {
	return Eq[T]("id", id)
}

func Eq[T Entity](path string, value any) Filter[T] {
	return Filter[T]{conds: []Condition{newCondition(CondEq, path, value)}}
}

func Ne[T Entity](path string, value any) Filter[T] {
	return Filter[T]{conds: []Condition{newCondition(CondNe, path, value)}}
}

// Contains matches documents whose array at path holds value.
func Contains[T Entity](path string, value any) Filter[T] {
	return Filter[T]{conds: []Condition{newCondition(CondContains, path, value)}}
}

func Where[T Entity](fn func(T) bool) Filter[T] {
	return Filter[T]{preds: []func(T) bool{fn}}
}

func (f Filter[T]) And(others ...Filter[T]) Filter[T] {
	out := Filter[T]{
		conds: append([]Condition(nil), f.conds...),
		preds: append([]func(T) bool(nil), f.preds...),
	}
	for _, o := range others {
		out.conds = append(out.conds, o.conds...)
		out.preds = append(out.preds, o.preds...)
	}
	return out
}

func (f Filter[T]) Conditions() []Condition {
	return f.conds
}

func (f Filter[T]) HasPredicates() bool {
	return len(f.preds) > 0
}

// ID returns the id when the filter is exactly ByID.
func (f Filter[T]) ID() (string, bool) {
	if len(f.preds) != 0 || len(f.conds) != 1 {
		return "", false
	}
	c := f.conds[0]
	id, ok := c.Value.(string)
	return id, ok && c.Kind == CondEq && c.Path == "id"
}

// MatchConditions evaluates only the JSON conditions.
func (f Filter[T]) MatchConditions(raw []byte) bool {
	for _, c := range f.conds {
		if !c.Match(raw) {
			return false
		}
	}
	return true
}

// MatchPredicates evaluates only the typed predicates.
func (f Filter[T]) MatchPredicates(item T) bool {
	for _, p := range f.preds {
		if !p(item) {
			return false
		}
	}
	return true
}

// MatchRaw evaluates the whole filter, decoding raw only when predicates exist.
func (f Filter[T]) MatchRaw(raw []byte) (bool, error) {
	if !f.MatchConditions(raw) {
		return false, nil
	}
	if len(f.preds) == 0 {
		return true, nil
	}
	item, err := Decode[T](raw)
	if err != nil {
		return false, err
	}
	return f.MatchPredicates(item), nil
}

func newCondition(kind ConditionKind, path string, value any) Condition {
	return Condition{Kind: kind, Path: path, Value: value, norm: normalize(value)}
}

func (c Condition) Match(raw []byte) bool {
	r := gjson.GetBytes(raw, c.Path)
	switch c.Kind {
	case CondEq:
		return equalResult(r, c.norm)
	case CondNe:
		return !equalResult(r, c.norm)
	case CondContains:
		if !r.IsArray() {
			return false
		}
		found := false
		r.ForEach(func(_, v gjson.Result) bool {
			found = equalResult(v, c.norm)
			return !found
		})
		return found
	}
	return false
}

// JSON returns the condition value encoded as JSON.
func (c Condition) JSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

func equalResult(r gjson.Result, norm any) bool {
	if norm == nil {
		return !r.Exists() || r.Type == gjson.Null
	}
	if !r.Exists() {
		return false
	}
	var v any
	if err := json.Unmarshal([]byte(r.Raw), &v); err != nil {
		return false
	}
	return reflect.DeepEqual(v, norm)
}

// normalize maps a Go value onto the shape encoding/json decodes into any,
// so typed values compare equal to their stored form.
func normalize(value any) any {
	if value == nil {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return value
	}
	return v
}

type UpdateKind string

const (
	UpdSet      UpdateKind = "set"
	UpdUnset    UpdateKind = "unset"
	UpdAddToSet UpdateKind = "addToSet"
	UpdPull     UpdateKind = "pull"
)

type UpdateOp struct {
	Kind  UpdateKind
	Path  string
	Value any
}

// Update is an ordered list of field operations applied to one document.
type Update struct {
	ops []UpdateOp
}

func Set(path string, value any) Update {
	return Update{}.Set(path, value)
}

func Unset(path string) Update {
	return Update{}.Unset(path)
}

func AddToSet(path string, value any) Update {
	return Update{}.AddToSet(path, value)
}

func Pull(path string, value any) Update {
	return Update{}.Pull(path, value)
}

func (u Update) Set(path string, value any) Update {
	return u.with(UpdateOp{Kind: UpdSet, Path: path, Value: value})
}

func (u Update) Unset(path string) Update {
	return u.with(UpdateOp{Kind: UpdUnset, Path: path})
}

func (u Update) AddToSet(path string, value any) Update {
	return u.with(UpdateOp{Kind: UpdAddToSet, Path: path, Value: value})
}

func (u Update) Pull(path string, value any) Update {
	return u.with(UpdateOp{Kind: UpdPull, Path: path, Value: value})
}

func (u Update) Ops() []UpdateOp {
	return u.ops
}

func (u Update) IsEmpty() bool {
	return len(u.ops) == 0
}

func (u Update) with(op UpdateOp) Update {
	ops := make([]UpdateOp, len(u.ops), len(u.ops)+1)
	copy(ops, u.ops)
	return Update{ops: append(ops, op)}
}

// Apply runs every operation against raw and returns the new document.
func (u Update) Apply(raw []byte) ([]byte, error) {
	out := raw
	for _, op := range u.ops {
		if op.Path == "id" {
			return nil, fmt.Errorf("datacontext: id is immutable")
		}
		var err error
		switch op.Kind {
		case UpdSet:
			var b []byte
			if b, err = json.Marshal(op.Value); err == nil {
				out, err = sjson.SetRawBytes(out, op.Path, b)
			}
		case UpdUnset:
			if gjson.GetBytes(out, op.Path).Exists() {
				out, err = sjson.DeleteBytes(out, op.Path)
			}
		case UpdAddToSet:
			out, err = addToSet(out, op.Path, op.Value)
		case UpdPull:
			out, err = pull(out, op.Path, op.Value)
		default:
			err = fmt.Errorf("datacontext: unknown update kind %q", op.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("datacontext: apply %s %s: %w", op.Kind, op.Path, err)
		}
	}
	return out, nil
}

func addToSet(raw []byte, path string, value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	r := gjson.GetBytes(raw, path)
	if !r.IsArray() {
		return sjson.SetRawBytes(raw, path, append(append([]byte{'['}, b...), ']'))
	}
	norm := normalize(value)
	for _, v := range r.Array() {
		if equalResult(v, norm) {
			return raw, nil
		}
	}
	return sjson.SetRawBytes(raw, path+".-1", b)
}

func pull(raw []byte, path string, value any) ([]byte, error) {
	r := gjson.GetBytes(raw, path)
	if !r.IsArray() {
		return raw, nil
	}
	norm := normalize(value)
	kept := make([]json.RawMessage, 0)
	for _, v := range r.Array() {
		if !equalResult(v, norm) {
			kept = append(kept, json.RawMessage(v.Raw))
		}
	}
	b, err := json.Marshal(kept)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(raw, path, b)
}

// Encode marshals an entity into its stored form.
func Encode[T Entity](item T) ([]byte, error) {
	return json.Marshal(item)
}

// Decode returns a fresh T from its stored form.
func Decode[T Entity](raw []byte) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("datacontext: decode %T: %w", item, err)
	}
	return item, nil
}

// DecodeAll decodes every document in order.
func DecodeAll[T Entity](raws [][]byte) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		item, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
