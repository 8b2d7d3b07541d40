package batch

import "strings"

// LogLevel is the severity token a tool prints at the start of a line.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// OutputLine is one line of merged process output with its extracted level.
type OutputLine struct {
	Level LogLevel
	Text  string
}

var levelTokens = []struct {
	token string
	level LogLevel
}{
	{"[ERROR]", LevelError},
	{"[WARNING]", LevelWarn},
	{"[WARN]", LevelWarn},
	{"[INFO]", LevelInfo},
	{"[DEBUG]", LevelDebug},
}

// ParseOutputLine extracts the leading level token from a line of tool
// output. Leading whitespace is ignored and tokens match case-insensitively;
// lines without a token are INFO. Text is the line without its trailing
// carriage return.
func ParseOutputLine(line string) OutputLine {
	text := strings.TrimRight(line, "\r")
	trimmed := strings.TrimLeft(text, " \t")

	for _, candidate := range levelTokens {
		if len(trimmed) >= len(candidate.token) && strings.EqualFold(trimmed[:len(candidate.token)], candidate.token) {
			return OutputLine{Level: candidate.level, Text: text}
		}
	}
	return OutputLine{Level: LevelInfo, Text: text}
}
