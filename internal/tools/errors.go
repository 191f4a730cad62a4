package tools

import "fmt"

// NotFoundError indicates an action named a tool the registry does not
// have. Recoverable: the agent feeds it back as an observation.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// SchemaError indicates the action input failed validation against the
// tool's declared parameters before dispatch.
type SchemaError struct {
	Tool   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid input for tool %q: %s", e.Tool, e.Reason)
}
