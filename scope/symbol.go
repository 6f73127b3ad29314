// Package scope recovers function scoping and the top-level surface of a
// Python module.
package scope

import (
	"fmt"
	"strings"

	"github.com/hannajonsd/sqli-reachability/pyast"
)

// FunctionSymbol is a function definition together with its lexical
// context. Name is qualified with the enclosing class chain, for example
// "Outer.Inner:method"; top-level functions keep their simple name.
type FunctionSymbol struct {
	Def        *pyast.FunctionDef
	Module     string
	Name       string
	SimpleName string
	Params     []string
	Owners     []string // enclosing classes, innermost first
	Endpoint   bool
}

// IsMethod reports whether the function is defined inside a class.
func (s *FunctionSymbol) IsMethod() bool {
	return len(s.Owners) > 0
}

// HasParam reports whether name is one of the formal parameters.
func (s *FunctionSymbol) HasParam(name string) bool {
	for _, p := range s.Params {
		if p == name {
			return true
		}
	}
	return false
}

func (s *FunctionSymbol) String() string {
	return fmt.Sprintf("%s:%s(%s)", s.Module, s.Name, strings.Join(s.Params, ", "))
}

// QualifiedName builds the name of a function nested in the given class
// stack (outermost first).
func QualifiedName(classes []string, name string) string {
	if len(classes) == 0 {
		return name
	}
	return strings.Join(classes, ".") + ":" + name
}
