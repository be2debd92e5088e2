package mcp

import (
	"path"
	"strings"
)

// mimeTypes maps document extensions to MIME types.
var mimeTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".rst":      "text/x-rst",
	".adoc":     "text/asciidoc",
	".org":      "text/x-org",
	".csv":      "text/csv",
	".html":     "text/html",
	".htm":      "text/html",
	".xml":      "text/xml",
	".json":     "application/json",
	".yaml":     "text/x-yaml",
	".yml":      "text/x-yaml",
	".log":      "text/plain",
}

// MimeTypeForPath returns the MIME type for a document ID. Unknown
// extensions are served as text/plain since only text is indexed.
func MimeTypeForPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "text/plain"
}
