// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import (
	"encoding/json"
	"fmt"
)

type (
	// VarFloat64 is a type alias for Variable[float64], representing a float64 value with initialization tracking.
	VarFloat64 = Variable[float64]

	// VarInt is a type alias for Variable[int], representing an integer value with initialization tracking.
	VarInt = Variable[int]
)

// Variable represents a generic optional value. The zero value is unset.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable creates and returns a new Variable instance initialized with the provided value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Reset clears the value of the Variable and marks it as uninitialized.
func (v *Variable[T]) Reset() {
	var newVal T
	v.value = newVal
	v.isset = false
}

// Value retrieves the current value stored in the Variable.
func (v Variable[T]) Value() T {
	return v.value
}

// Set assigns the provided value to the Variable and marks it as initialized.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// IsSet returns true if the Variable has been initialized with a value, otherwise false.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

func (v Variable[T]) String() string {
	if !v.isset {
		return "n/a"
	}
	return fmt.Sprint(v.value)
}

// MarshalJSON encodes an unset Variable as null.
func (v Variable[T]) MarshalJSON() ([]byte, error) {
	if !v.isset {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}

// UnmarshalJSON decodes null into an unset Variable.
func (v *Variable[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		v.Reset()
		return nil
	}
	var val T
	if err := json.Unmarshal(data, &val); err != nil {
		return err
	}
	v.Set(val)
	return nil
}
