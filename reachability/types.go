// Package reachability finds the call sites of a function across a
// project, following how each module imported it.
package reachability

// ImportCase is how a module can refer to a function of another module.
type ImportCase int

const (
	// NoImports means the module cannot refer to the function.
	NoImports ImportCase = iota
	// EntireModule means the defining module is imported under its own
	// name and calls look like pkg.mod.f(...).
	EntireModule
	// OnlyFunction means the function name is bound directly: f(...).
	OnlyFunction
	// OnlyFunctionAs means the function is bound under an alias: g(...).
	OnlyFunctionAs
	// EntireModuleAs means the defining module is bound under some other
	// name: m.f(...).
	EntireModuleAs
)

func (c ImportCase) String() string {
	switch c {
	case EntireModule:
		return "entire_module"
	case OnlyFunction:
		return "only_function"
	case OnlyFunctionAs:
		return "only_function_as"
	case EntireModuleAs:
		return "entire_module_as"
	}
	return "no_imports"
}

// Classification is the outcome of DifferentiateImports. Target is the
// bound name calls must use: a function name for the OnlyFunction cases, a
// module name for the EntireModule cases.
type Classification struct {
	Case     ImportCase
	Target   string
	Function string
}
