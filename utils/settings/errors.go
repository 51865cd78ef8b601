package settings

import "fmt"

// LoadError reports a settings file that exists but cannot be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load settings %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}
