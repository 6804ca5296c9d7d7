// Package config reads the scalar settings of a simulation from a
// dictionary of named values.
package config

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// ErrMalformed is returned when a value cannot be read as the requested type.
var ErrMalformed = errors.New("malformed configuration value")

// A Dictionary is a read-only set of named configuration values.
type Dictionary interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)

	// Keys returns every key in sorted order.
	Keys() []string
}

// Map is a Dictionary backed by a Go map.
type Map map[string]any

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns every key in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Lookup returns the value of the first key present in d. Later keys are
// aliases of the first one.
func Lookup(d Dictionary, keys ...string) (key string, value any, ok bool) {
	if d == nil {
		return "", nil, false
	}

	for _, k := range keys {
		if v, found := d.Get(k); found {
			return k, v, true
		}
	}

	return "", nil, false
}

// Has tells if any of the keys is present in d.
func Has(d Dictionary, keys ...string) bool {
	_, _, ok := Lookup(d, keys...)
	return ok
}

// Int reads an integer, falling back to def when none of the keys is set.
func Int(d Dictionary, def int, keys ...string) (int, error) {
	key, v, ok := Lookup(d, keys...)
	if !ok {
		return def, nil
	}

	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return def, malformed(key, v, "integer")
		}

		return int(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return def, malformed(key, v, "integer")
		}

		return n, nil
	}

	return def, malformed(key, v, "integer")
}

// Float reads a floating point number, falling back to def when none of the
// keys is set.
func Float(d Dictionary, def float64, keys ...string) (float64, error) {
	key, v, ok := Lookup(d, keys...)
	if !ok {
		return def, nil
	}

	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return def, malformed(key, v, "number")
		}

		return f, nil
	}

	return def, malformed(key, v, "number")
}

// Bool reads a boolean, falling back to def when none of the keys is set.
func Bool(d Dictionary, def bool, keys ...string) (bool, error) {
	key, v, ok := Lookup(d, keys...)
	if !ok {
		return def, nil
	}

	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def, malformed(key, v, "boolean")
		}

		return b, nil
	}

	return def, malformed(key, v, "boolean")
}

// String reads a string, falling back to def when none of the keys is set.
func String(d Dictionary, def string, keys ...string) (string, error) {
	key, v, ok := Lookup(d, keys...)
	if !ok {
		return def, nil
	}

	s, isString := v.(string)
	if !isString {
		return def, malformed(key, v, "string")
	}

	return s, nil
}

// Strings reads a list of strings. A single string is read as a list of one.
func Strings(d Dictionary, keys ...string) ([]string, error) {
	key, v, ok := Lookup(d, keys...)
	if !ok {
		return nil, nil
	}

	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return slices.Clone(x), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, isString := item.(string)
			if !isString {
				return nil, malformed(key, v, "list of strings")
			}

			out = append(out, s)
		}

		return out, nil
	}

	return nil, malformed(key, v, "list of strings")
}

func malformed(key string, v any, want string) error {
	return fmt.Errorf("%w: %s = %v (%T) is not a %s",
		ErrMalformed, key, v, v, want)
}
