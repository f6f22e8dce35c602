package jack

import (
	"fmt"
	"strings"

	"hmny.dev/n2t-toolchain/pkg/utils"
)

// Scope is one named binding frame: a stack of variables in declaration order, so the
// index a variable is pushed at doubles as its VM memory-segment offset once resolved.
type Scope struct {
	name    string
	entries utils.Stack[Variable]
}

// ScopeTable tracks every binding frame live while walking a class: fields and statics
// persist for the whole class body, locals and parameters are swapped in and out per
// subroutine. Zero value is a valid, empty table — no constructor call required.
type ScopeTable struct {
	static utils.Stack[Variable]

	local     Scope
	field     Scope
	parameter Scope
}

func NewScopeTable() *ScopeTable {
	return &ScopeTable{}
}

// PushClassScope opens a fresh field scope for 'class'; any previous field scope is
// discarded, since Jack classes never nest.
func (st *ScopeTable) PushClassScope(class string) {
	st.field = Scope{name: fmt.Sprintf("%s.Global", class)}
}

// PopClassScope closes whatever field scope is open, dropping every field binding in it.
func (st *ScopeTable) PopClassScope() { st.field = Scope{} }

// PushSubRoutineScope opens fresh local and parameter scopes for 'method', named by
// swapping "Global" in the enclosing class scope for the subroutine's own name.
func (st *ScopeTable) PushSubRoutineScope(method string) {
	name := strings.ReplaceAll(st.GetScope(), "Global", method)
	st.local = Scope{name: name}
	st.parameter = Scope{name: name}
}

// PopSubroutineScope closes the currently open local/parameter scopes.
func (st *ScopeTable) PopSubroutineScope() { st.local, st.parameter = Scope{}, Scope{} }

// GetScope returns the name of the innermost scope currently open: a subroutine scope if
// one is open, else the class scope, else "Global" if nothing has been pushed at all.
func (st *ScopeTable) GetScope() string {
	if st.local.name != "" && st.parameter.name != "" {
		return st.local.name
	}
	if st.field.name != "" {
		return st.field.name
	}
	return "Global"
}

// RegisterVariable binds 'variable' into the scope matching its own 'Type', appending to
// whichever stack is already open for that kind (shadowing any same-named entry beneath it).
func (st *ScopeTable) RegisterVariable(variable Variable) {
	switch variable.Type {
	case Local:
		st.local.entries.Push(variable)
	case Field:
		st.field.entries.Push(variable)
	case Parameter:
		st.parameter.entries.Push(variable)
	case Static:
		st.static.Push(variable)
	}
}

// ResolveVariable looks 'name' up across every open scope, innermost first (local, then
// parameter, then field, then static), returning the first match along with its offset
// within that scope's stack — the offset a caller needs to address the right VM segment slot.
func (st *ScopeTable) ResolveVariable(name string) (uint16, Variable, error) {
	scopes := []utils.Stack[Variable]{st.local.entries, st.parameter.entries, st.field.entries, st.static}

	for _, scope := range scopes {
		for idx, entry := range scope.Iterator() {
			if entry.Name == name {
				return uint16(idx), entry, nil
			}
		}
	}

	return 0, Variable{}, fmt.Errorf("variable '%s' undeclared, not found in any scope", name)
}
