package shortcut

import "fmt"

// UnsupportedPlatformError reports a platform with no shortcut mechanism.
type UnsupportedPlatformError struct {
	GOOS string
}

func (e UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no shortcut mechanism on %s", e.GOOS)
}

// CreateError reports a shortcut that could not be written.
type CreateError struct {
	Name    string
	Details string
	Err     error
}

func (e CreateError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("create shortcut %q: %v (%s)", e.Name, e.Err, e.Details)
	}
	return fmt.Sprintf("create shortcut %q: %v", e.Name, e.Err)
}

func (e CreateError) Unwrap() error {
	return e.Err
}
