package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/alexisbeaulieu97/tunebatch/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Format identifies a pipeline file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the encoding from the file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// ParseFile reads and validates a pipeline document from disk.
func ParseFile(path string) (*Document, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, apperrors.NewParseError(path, 0,
			fmt.Errorf("unsupported pipeline file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParseError(path, 0, err)
	}

	doc, err := Parse(path, data, format)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse decodes data without validating it. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func Parse(path string, data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				row, col := decodeErr.Position()
				return nil, apperrors.NewParseErrorAt(path, row, col, err)
			}
			return nil, apperrors.NewParseError(path, 0, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, apperrors.NewParseError(path, 0, errors.New("pipeline file is empty"))
			}
			return nil, apperrors.NewParseError(path, extractLine(err), err)
		}
	}
	return &doc, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	line, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0
	}
	return line
}
