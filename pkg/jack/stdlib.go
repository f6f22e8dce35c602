package jack

import (
	_ "embed"
	"encoding/json"
)

// ----------------------------------------------------------------------------
// Standard Library ABI

// The Jack OS ships as a set of pre-compiled '.vm' files (Math, String, Array, Memory, Screen,
// Keyboard, Output, Sys) rather than Jack source, so neither the Lowerer nor the TypeChecker can
// build a 'jack.Class' for them the way they do for user code. 'stdlib.json' instead records just
// their call surface (argument/return types), embedded at compile time so callers never need it
// on disk at runtime.

//go:embed stdlib.json
var stdlibManifest string

// A single subroutine exposed by one of the OS-level standard library classes.
type StdlibFunction struct {
	Type      SubroutineType `json:"type"`
	Return    DataType       `json:"return"`
	Arguments []DataType     `json:"arguments"`
}

type stdlibClass struct {
	Subroutines map[string]StdlibFunction `json:"subroutines"`
}

var standardLibrary = map[string]stdlibClass{}

func init() {
	if err := json.Unmarshal([]byte(stdlibManifest), &standardLibrary); err != nil {
		panic("jack: malformed embedded stdlib.json: " + err.Error())
	}
}

// Looks up a subroutine exposed by one of the standard library classes, reporting whether it
// was found at all as the second return value.
func LookupStdlib(className, funcName string) (StdlibFunction, bool) {
	class, ok := standardLibrary[className]
	if !ok {
		return StdlibFunction{}, false
	}
	fn, ok := class.Subroutines[funcName]
	return fn, ok
}
