// Package archive reads export bundles. All supported exports ship as zip
// files with one or more structured data files plus referenced media;
// parsers locate entries through the tolerant lookup here because the
// archives reference media with a mix of relative paths, absolute paths
// and percent-encoded names.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Archive is an opened zip export.
type Archive struct {
	reader *zip.Reader

	byPath map[string]*zip.File
	byBase map[string][]*zip.File
}

// Open reads a zip archive held fully in memory.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	a := &Archive{
		reader: zr,
		byPath: make(map[string]*zip.File),
		byBase: make(map[string][]*zip.File),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		p := normalizePath(f.Name)
		a.byPath[p] = f
		base := strings.ToLower(path.Base(p))
		a.byBase[base] = append(a.byBase[base], f)
	}
	return a, nil
}

// IsZip reports whether the data starts with a zip signature.
func IsZip(data []byte) bool {
	return len(data) >= 4 && bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// Names lists all file entries, normalized.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.byPath))
	for p := range a.byPath {
		names = append(names, p)
	}
	return names
}

// Has reports whether an entry resolves under the tolerant lookup.
func (a *Archive) Has(name string) bool {
	return a.find(name) != nil
}

// HasPrefix reports whether any entry path starts with the given prefix.
func (a *Archive) HasPrefix(prefix string) bool {
	prefix = normalizePath(prefix)
	for p := range a.byPath {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// FindSuffix returns the normalized paths of all entries ending with the
// given suffix (case-insensitive).
func (a *Archive) FindSuffix(suffix string) []string {
	suffix = strings.ToLower(suffix)
	var out []string
	for p := range a.byPath {
		if strings.HasSuffix(strings.ToLower(p), suffix) {
			out = append(out, p)
		}
	}
	return out
}

// Read returns the contents of one entry. The lookup tries the exact
// normalized path first, then a percent-decoded variant, then falls back
// to matching by base name, which covers exports that reference media by
// absolute device paths.
func (a *Archive) Read(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		return nil, fmt.Errorf("entry %q not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %q: %w", name, err)
	}
	return data, nil
}

func (a *Archive) find(name string) *zip.File {
	p := normalizePath(name)
	if f, ok := a.byPath[p]; ok {
		return f
	}
	if decoded, err := url.PathUnescape(p); err == nil && decoded != p {
		if f, ok := a.byPath[normalizePath(decoded)]; ok {
			return f
		}
	}
	base := strings.ToLower(path.Base(p))
	if matches := a.byBase[base]; len(matches) > 0 {
		return matches[0]
	}
	return nil
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return path.Clean(p)
}
