package eval

import (
	"path"
	"strings"

	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// Module is the result of evaluating one source unit.
type Module struct {
	Name    string
	Scope   *Scope
	Content model.Content
}

// moduleName derives a module name from a file identity.
func moduleName(id syntax.FileID) string {
	if id == "" {
		return "main"
	}
	base := path.Base(string(id))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Field looks up an exported binding.
func (m *Module) Field(name string) (Value, bool) { return m.Scope.Get(name) }
