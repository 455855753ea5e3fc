package params

import "fmt"

// ConfigError reports an authoring mistake detected while constructing options
// or building the configuration graph. It is always fatal to graph
// construction and is never recovered silently.
type ConfigError struct {
	// Name identifies the offending parameter or data source, when known.
	Name    string
	Message string
}

func (e ConfigError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("parameter %s: %s", e.Name, e.Message)
}

// Configf builds a ConfigError with a formatted message.
func Configf(name, format string, args ...any) ConfigError {
	return ConfigError{Name: name, Message: fmt.Sprintf(format, args...)}
}

// InputError reports an end-user selection that falls outside the currently
// valid option set, fails to parse, or violates range ordering. The call that
// produced it leaves all prior state untouched.
type InputError struct {
	// Name identifies the parameter the selection targeted.
	Name    string
	Message string
}

func (e InputError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("parameter %s: %s", e.Name, e.Message)
}

// Inputf builds an InputError with a formatted message.
func Inputf(name, format string, args ...any) InputError {
	return InputError{Name: name, Message: fmt.Sprintf(format, args...)}
}
