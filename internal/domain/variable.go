package domain

// VariableType tags the concrete representation a Variable's value must have.
type VariableType string

const (
	VariableTypeString  VariableType = "String"
	VariableTypeInteger VariableType = "Integer"
	VariableTypeFloat   VariableType = "Float"
	VariableTypeBoolean VariableType = "Boolean"
	VariableTypeList    VariableType = "List"
)

// Variable is a named, typed value passed into and recovered from a script
// run. The value's runtime type must match the tag; the codec rejects
// mismatches rather than coercing, except integer-to-float widening.
type Variable struct {
	Name  string       `json:"name"`
	Type  VariableType `json:"variableType"`
	Value any          `json:"value"`
}

// OutputAction is a (name, argument) pair emitted by a script run. It is
// transient: it exists only for the duration of one input-event-handling
// operation, routed to matching receivers and then discarded.
type OutputAction struct {
	ActionName string `json:"actionName"`
	Argument   string `json:"argument"`
}
