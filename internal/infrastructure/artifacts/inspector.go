package artifacts

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

// DefaultMaxReportBytes caps how much of a report file is read.
const DefaultMaxReportBytes = 1 << 20

// accuracyPattern matches a percentage that follows "accuracy" or "overall"
// on the same line. Other percentages (CPU load, progress) are ignored.
var accuracyPattern = regexp.MustCompile(`(?i)\b(?:accuracy|overall)\b.*?([0-9]+(?:\.[0-9]+)?)\s*%`)

// Inspector reads step artifacts from the local filesystem.
type Inspector struct {
	maxReportBytes int64
}

var _ ports.ArtifactInspector = (*Inspector)(nil)

// NewInspector creates an inspector. A non-positive limit uses
// DefaultMaxReportBytes.
func NewInspector(maxReportBytes int64) *Inspector {
	if maxReportBytes <= 0 {
		maxReportBytes = DefaultMaxReportBytes
	}
	return &Inspector{maxReportBytes: maxReportBytes}
}

// Stat implements ports.ArtifactInspector.
func (i *Inspector) Stat(path string) ports.Artifact {
	artifact := ports.Artifact{Path: path}
	if path == "" {
		return artifact
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return artifact
	}
	artifact.Exists = true
	artifact.Size = info.Size()
	return artifact
}

// Accuracy implements ports.ArtifactInspector. Reports written by the
// conversion tools are usually ASCII; anything that is not valid UTF-8 is
// decoded as Windows-1252. A line mentioning "overall" wins over earlier
// per-section figures, with or without the word "accuracy". Values are clamped to 0..100.
func (i *Inspector) Accuracy(path string) (float64, bool) {
	if path == "" {
		return 0, false
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, i.maxReportBytes))
	if err != nil {
		return 0, false
	}
	text, err := decode(data)
	if err != nil {
		return 0, false
	}
	return parseAccuracy(text)
}

func decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func parseAccuracy(text string) (float64, bool) {
	var (
		first    float64
		hasFirst bool
	)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		match := accuracyPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		value = clamp(value)
		if strings.Contains(strings.ToLower(line), "overall") {
			return value, true
		}
		if !hasFirst {
			first, hasFirst = value, true
		}
	}
	return first, hasFirst
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
