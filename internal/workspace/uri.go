// Package workspace locates and reads the Forth sources of a project and
// reports changes to them on disk.
package workspace

import (
	"net/url"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// URIToPath converts a file:// URI to a file system path.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, fileScheme) {
		return uri
	}
	path := uri[len(fileScheme):]
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return filepath.FromSlash(path)
}

// PathToURI converts a file system path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, fileScheme) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
