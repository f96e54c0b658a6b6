package parse

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Format names a serialization.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatJSONLD   Format = "jsonld"
	FormatN3       Format = "n3"
)

var mediaTypes = map[string]Format{
	"text/turtle":           FormatTurtle,
	"application/x-turtle":  FormatTurtle,
	"application/n-triples": FormatNTriples,
	"application/n-quads":   FormatNQuads,
	"application/ld+json":   FormatJSONLD,
	"application/json":      FormatJSONLD,
}

var extensions = map[string]Format{
	".ttl":    FormatTurtle,
	".turtle": FormatTurtle,
	".nt":     FormatNTriples,
	".nq":     FormatNQuads,
	".jsonld": FormatJSONLD,
	".json":   FormatJSONLD,
}

// DetectFormat picks a format from the content type, falling back to the
// file extension of name (a path or URL). Content type parameters are
// ignored. Generic types such as text/plain never match on their own.
func DetectFormat(contentType, name string) (Format, error) {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if f, ok := mediaTypes[strings.ToLower(mt)]; ok {
				return f, nil
			}
		}
	}

	if name != "" {
		p := name
		if u, err := url.Parse(name); err == nil && u.Path != "" {
			p = u.Path
		}
		if f, ok := extensions[strings.ToLower(path.Ext(p))]; ok {
			return f, nil
		}
	}

	switch {
	case contentType != "" && name != "":
		return "", fmt.Errorf("%w: content type %q, name %q", ErrUnsupportedFormat, contentType, name)
	case contentType != "":
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// MediaType returns the canonical content type for f.
func (f Format) MediaType() string {
	switch f {
	case FormatTurtle:
		return "text/turtle"
	case FormatNTriples:
		return "application/n-triples"
	case FormatNQuads:
		return "application/n-quads"
	case FormatJSONLD:
		return "application/ld+json"
	case FormatN3:
		return "text/n3"
	default:
		return "application/octet-stream"
	}
}
