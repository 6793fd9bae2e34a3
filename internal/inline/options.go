// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
)

// envObject is the expression whose members are replaced with literals.
const envObject = "process.env"

// identPattern matches names that can appear after a dot in a JS member
// expression. Other names cannot be expressed as a define key.
var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Options selects which environment variables are inlined.
//
// A nil Include means every variable in the environment is a candidate; a
// non-nil empty Include selects nothing. Exclude always wins over Include.
type Options struct {
	Include []string
	Exclude []string
}

// NewOptions normalizes loosely typed include/exclude inputs into Options.
func NewOptions(include, exclude any) Options {
	return Options{
		Include: Normalize(include),
		Exclude: Normalize(exclude),
	}
}

// Normalize coerces an optional single value or list into list form.
//
// Absent and falsy values (nil, "", false, numeric zero) return nil, meaning
// "no restriction". A []string is returned as is, so an empty list stays an
// empty non-nil list. Other slices are converted element by element, and any
// remaining scalar is wrapped into a single-element list.
func Normalize(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, fmt.Sprint(rv.Index(i).Interface()))
		}
		return out
	default:
		if rv.IsZero() {
			return nil
		}
		return []string{fmt.Sprint(v)}
	}
}

// IsCandidate reports whether name may be inlined under these options.
func (o Options) IsCandidate(name string) bool {
	if slices.Contains(o.Exclude, name) {
		return false
	}
	if o.Include == nil {
		return true
	}
	return slices.Contains(o.Include, name)
}

// Defines builds the engine define table for env: one entry per candidate
// variable, keyed by its `process.env.NAME` expression and mapped to a JSON
// string literal of its value. Candidate names that are not valid
// identifiers are returned in skipped, sorted.
func (o Options) Defines(env Env) (defines map[string]string, skipped []string) {
	defines = make(map[string]string)
	for _, name := range env.Names() {
		if !o.IsCandidate(name) {
			continue
		}
		if !identPattern.MatchString(name) {
			skipped = append(skipped, name)
			continue
		}
		value, _ := env.Lookup(name)
		literal, err := json.Marshal(value)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		defines[envObject+"."+name] = string(literal)
	}
	return defines, skipped
}
