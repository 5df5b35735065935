package evaluator

import (
	"lemon/internal/object"
)

type Variable struct {
	Name  string
	Value object.Value
}

// GlobalTable holds the session's global variables. Lookups scan newest
// first, so a later registration shadows an earlier one with the same name.
type GlobalTable struct {
	vars []*Variable
}

func (g *GlobalTable) Search(name string) *Variable {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if g.vars[i].Name == name {
			return g.vars[i]
		}
	}
	return nil
}

func (g *GlobalTable) Len() int { return len(g.vars) }

func (g *GlobalTable) add(name string, v object.Value) *Variable {
	variable := &Variable{Name: name, Value: v}
	g.vars = append(g.vars, variable)
	return variable
}

func (g *GlobalTable) releaseAll() {
	for i := len(g.vars) - 1; i >= 0; i-- {
		object.ReleaseValue(g.vars[i].Value)
	}
	g.vars = nil
}

// LocalEnvironment is the scope of one user-function activation. A nil
// *LocalEnvironment is the top level.
type LocalEnvironment struct {
	vars    []*Variable
	globals []*Variable
}

func newLocalEnvironment() *LocalEnvironment {
	return &LocalEnvironment{}
}

func (env *LocalEnvironment) searchLocal(name string) *Variable {
	if env == nil {
		return nil
	}
	for i := len(env.vars) - 1; i >= 0; i-- {
		if env.vars[i].Name == name {
			return env.vars[i]
		}
	}
	return nil
}

func (env *LocalEnvironment) searchBridge(name string) *Variable {
	for i := len(env.globals) - 1; i >= 0; i-- {
		if env.globals[i].Name == name {
			return env.globals[i]
		}
	}
	return nil
}

// add binds v without retaining it; the caller hands over its reference.
func (env *LocalEnvironment) add(name string, v object.Value) {
	env.vars = append(env.vars, &Variable{Name: name, Value: v})
}

func (env *LocalEnvironment) bridge(v *Variable) {
	env.globals = append(env.globals, v)
}

// dispose releases the locals. Bridged globals are only unlinked.
func (env *LocalEnvironment) dispose() {
	for i := len(env.vars) - 1; i >= 0; i-- {
		object.ReleaseValue(env.vars[i].Value)
	}
	env.vars = nil
	env.globals = nil
}

// searchGlobalFromEnv resolves a global reachable from env: every global at
// the top level, only bridged ones inside a function.
func (in *Interpreter) searchGlobalFromEnv(env *LocalEnvironment, name string) *Variable {
	if env == nil {
		return in.globals.Search(name)
	}
	return env.searchBridge(name)
}

func (in *Interpreter) searchVariable(env *LocalEnvironment, name string) *Variable {
	if v := env.searchLocal(name); v != nil {
		return v
	}
	return in.searchGlobalFromEnv(env, name)
}
