package extract

import "fmt"

// ArchiveError reports an archive that could not be opened or read.
type ArchiveError struct {
	Path string
	Err  error
}

func (e ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e ArchiveError) Unwrap() error {
	return e.Err
}

// UnsafePathError reports a zip entry that would escape the destination.
type UnsafePathError struct {
	Entry string
}

func (e UnsafePathError) Error() string {
	return fmt.Sprintf("archive entry %q escapes the destination directory", e.Entry)
}
