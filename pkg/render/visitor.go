package render

import "fmt"

// FieldViewVisitor is implemented by renderers that draw every control kind.
type FieldViewVisitor interface {
	VisitInput(field FieldView) error
	VisitSelect(field FieldView) error
}

// Accept dispatches to the visitor method matching the control kind. An empty
// kind is an input.
func (f FieldView) Accept(v FieldViewVisitor) error {
	switch f.Kind {
	case "select":
		return v.VisitSelect(f)
	case "input", "":
		return v.VisitInput(f)
	default:
		return fmt.Errorf("render: field %q has unknown kind %q", f.Name, f.Kind)
	}
}
