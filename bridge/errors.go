package bridge

import "fmt"

// MissingPropertyError reports a property that is declared nowhere in a
// class's superclass chain.
type MissingPropertyError struct {
	Class    string
	Property string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("property %s not found for class %s", e.Property, e.Class)
}

// NoConstructorError reports a constructor symbol without any overload to
// call.
type NoConstructorError struct {
	Class string
}

func (e *NoConstructorError) Error() string {
	return "default constructor not found for " + e.Class
}
