package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrMalformed reports a document that could not be decoded at all.
var ErrMalformed = errors.New("malformed dataset")

// Format identifies how a document is encoded.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// zipMagic prefixes every XLSX (zip) file.
var zipMagic = []byte("PK\x03\x04")

// DetectFormat chooses a decoder from the file name, falling back to the
// content when the extension is not recognised.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatJSON
}

// Decode decodes data in the given format into a generic document.
func Decode(format Format, data []byte) (map[string]any, error) {
	switch format {
	case FormatXLSX:
		return DecodeXLSX(bytes.NewReader(data))
	default:
		return DecodeJSON(bytes.NewReader(data))
	}
}

// DecodeJSON decodes a JSON object, keeping numbers as json.Number so that
// integers and fractions can be told apart during validation.
func DecodeJSON(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("ingest: decode json: %w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("ingest: decode json: %w: top-level value must be an object", ErrMalformed)
	}
	return doc, nil
}
