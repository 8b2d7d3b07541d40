package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(envConfig)
	}
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("config file is required (use --config or %s)", envConfig)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("config file does not exist: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config path %s is a directory", abs)
	}

	return abs, nil
}

func splitSteps(values []string) []string {
	var ids []string
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	if e.suggestion == "" {
		return fmt.Sprintf("Failed to %s: %s\n\nError: %v", e.operation, e.context, e.cause)
	}
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error {
	return e.cause
}
