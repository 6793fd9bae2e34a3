// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"maps"
	"slices"
	"strings"
)

// Env is an immutable snapshot of environment variables. The zero value is an
// empty environment.
type Env struct {
	vars map[string]string
}

// NewEnv parses KEY=VALUE pairs as returned by os.Environ. Entries without a
// name (such as the "=C:" drive entries on Windows) are dropped. A later entry
// wins over an earlier one with the same name.
func NewEnv(environ []string) Env {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = value
	}
	return Env{vars: vars}
}

// EnvFromMap copies m into a new snapshot.
func EnvFromMap(m map[string]string) Env {
	return Env{vars: maps.Clone(m)}
}

// Lookup returns the value of name and whether it is set.
func (e Env) Lookup(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (e Env) Names() []string {
	return slices.Sorted(maps.Keys(e.vars))
}

// Len returns the number of variables in the snapshot.
func (e Env) Len() int {
	return len(e.vars)
}

// WithDefaults returns a snapshot holding every variable of base that e does
// not already set, plus all of e.
func (e Env) WithDefaults(base map[string]string) Env {
	vars := maps.Clone(base)
	if vars == nil {
		vars = make(map[string]string, len(e.vars))
	}
	maps.Copy(vars, e.vars)
	return Env{vars: vars}
}
