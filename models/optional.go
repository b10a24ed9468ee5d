package models

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "field absent from the patch" from "field present
// as null" from "field present with a value". A zero Optional means absent:
// no change requested.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func OptionalOf[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func OptionalNull[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Ptr returns nil when the field is null (or unset), otherwise the value.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
