// Package extract unpacks zip archives for the setup pipeline.
package extract

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lunatools/luna-setup/utils/faults"
)

// Extract unpacks archivePath into destDir. With flatten set, a single
// top-level directory wrapping all entries is stripped so the payload lands
// directly under destDir. Extraction is not atomic; callers track created
// files for rollback.
func Extract(archivePath, destDir string, flatten bool) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, faults.Permanent(ArchiveError{Path: archivePath, Err: err})
	}
	defer reader.Close()

	prefix := ""
	if flatten {
		prefix = commonRoot(reader.File)
	}

	var created []string
	for _, file := range reader.File {
		name := strings.TrimPrefix(file.Name, prefix)
		if name == "" {
			continue
		}
		target, err := secureJoin(destDir, name)
		if err != nil {
			return created, err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return created, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return created, err
		}
		if err := writeEntry(file, target); err != nil {
			return created, err
		}
		created = append(created, target)
	}
	return created, nil
}

// List reports the file paths Extract would create without touching destDir.
// Callers register these for rollback before extracting.
func List(archivePath, destDir string, flatten bool) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, faults.Permanent(ArchiveError{Path: archivePath, Err: err})
	}
	defer reader.Close()

	prefix := ""
	if flatten {
		prefix = commonRoot(reader.File)
	}

	var planned []string
	for _, file := range reader.File {
		name := strings.TrimPrefix(file.Name, prefix)
		if name == "" || file.FileInfo().IsDir() {
			continue
		}
		target, err := secureJoin(destDir, name)
		if err != nil {
			return nil, err
		}
		planned = append(planned, target)
	}
	return planned, nil
}

func writeEntry(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return ArchiveError{Path: file.Name, Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// secureJoin rejects entries that would escape destDir (zip slip).
func secureJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", faults.Permanent(UnsafePathError{Entry: name})
	}
	return target, nil
}

// commonRoot returns the shared "dir/" prefix when every entry lives under
// one top-level directory, else "".
func commonRoot(files []*zip.File) string {
	root := ""
	for _, file := range files {
		top, _, ok := strings.Cut(file.Name, "/")
		if !ok || top == "" {
			return ""
		}
		if root == "" {
			root = top
		} else if top != root {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}
