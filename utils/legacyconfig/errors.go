package legacyconfig

import "fmt"

// ParseError reports a legacy config file that could not be decoded.
type ParseError struct {
	Source string
	Path   string
	Err    error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse %s legacy config %s: %v", e.Source, e.Path, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}
