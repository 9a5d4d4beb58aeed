// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides a last-known-value holder that is safe for concurrent use.
package vartype

import (
	"fmt"
	"sync"
)

// Variable holds a single value of type T and tracks whether it was ever set. Writers replace
// the value, the last writer wins. The zero Variable is unset and ready to use. A Variable must
// not be copied after first use.
type Variable[T any] struct {
	mu    sync.RWMutex
	value T
	isset bool
}

// NewVariable returns a Variable that is already set to value.
func NewVariable[T any](value T) *Variable[T] {
	return &Variable[T]{
		isset: true,
		value: value,
	}
}

// Reset clears the value of the Variable and marks it as unset.
func (v *Variable[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	var zero T
	v.value = zero
	v.isset = false
}

// Value returns the current value, or the zero value of T when unset.
func (v *Variable[T]) Value() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Get returns the stored value and whether it was set.
func (v *Variable[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.isset
}

// Set replaces the stored value.
func (v *Variable[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = val
	v.isset = true
}

// IsSet reports whether the Variable holds a value.
func (v *Variable[T]) IsSet() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isset
}

func (v *Variable[T]) String() string {
	value, ok := v.Get()
	if !ok {
		return "<unset>"
	}
	return fmt.Sprint(value)
}
