package templates

import "fmt"

// LoadError aborts a whole load or reload of the templates directory.
// One malformed file is enough: serving a half-loaded set is worse
// than keeping the previous one
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("could not load template file %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError means no template with the requested logical name is loaded
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no template named %q", e.Name)
}

// MissingVariableError means a template placeholder had no value in the
// render context. This is a caller bug and is never papered over by
// emitting the raw token
type MissingVariableError struct {
	Template string
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q uses variable {{%s}} which is not in the render context", e.Template, e.Variable)
}
