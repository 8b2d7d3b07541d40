package resolver

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/tunebatch/internal/domain/batch"
	"github.com/alexisbeaulieu97/tunebatch/internal/ports"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Placeholders lists every name a command template may reference.
var Placeholders = []string{"input", "dir", "name", "stem", "ext", "outdir", "output", "driver", "index"}

// StepSource looks up configured step definitions.
type StepSource interface {
	Get(id string) (batch.StepDefinition, error)
}

// Template resolves commands by substituting file placeholders into each
// step's argv, output, workdir and env templates.
type Template struct {
	steps StepSource
}

var _ ports.CommandResolver = (*Template)(nil)

// NewTemplate creates a resolver over the given step definitions.
func NewTemplate(steps StepSource) *Template {
	return &Template{steps: steps}
}

// Resolve implements ports.CommandResolver.
func (t *Template) Resolve(stepID string, file ports.FileRef) (ports.Command, error) {
	errCtx := map[string]interface{}{"step_id": stepID, "file": file.Path}

	def, err := t.steps.Get(stepID)
	if err != nil {
		return ports.Command{}, batch.WrapConfigurationError("resolve command", err, errCtx)
	}
	if len(def.Command) == 0 {
		return ports.Command{}, batch.NewConfigurationError("step has no command", errCtx)
	}

	vars := fileVars(file)

	if def.Output != "" {
		output, err := expand(def.Output, vars, false)
		if err != nil {
			return ports.Command{}, batch.WrapConfigurationError("resolve output path", err, errCtx)
		}
		vars["output"] = output
	}

	argv := make([]string, len(def.Command))
	for i, arg := range def.Command {
		expanded, err := expand(arg, vars, true)
		if err != nil {
			return ports.Command{}, batch.WrapConfigurationError("resolve argument", err, errCtx)
		}
		argv[i] = expanded
	}

	cmd := ports.Command{Argv: argv, OutputPath: vars["output"]}

	if def.WorkDir != "" {
		if cmd.Dir, err = expand(def.WorkDir, vars, true); err != nil {
			return ports.Command{}, batch.WrapConfigurationError("resolve workdir", err, errCtx)
		}
	}

	keys := make([]string, 0, len(def.Env))
	for key := range def.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := expand(def.Env[key], vars, true)
		if err != nil {
			return ports.Command{}, batch.WrapConfigurationError("resolve environment", err, errCtx)
		}
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	return cmd, nil
}

// CheckPlaceholders reports the first placeholder in s that is not known.
func CheckPlaceholders(s string) error {
	for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if !isKnown(match[1]) {
			return fmt.Errorf("unknown placeholder {%s}", match[1])
		}
	}
	return nil
}

func fileVars(file ports.FileRef) map[string]string {
	base := filepath.Base(file.Path)
	ext := filepath.Ext(base)
	dir := filepath.Dir(file.Path)
	outdir := file.OutputDir
	if outdir == "" {
		outdir = dir
	}
	return map[string]string{
		"input":  file.Path,
		"dir":    dir,
		"name":   base,
		"stem":   strings.TrimSuffix(base, ext),
		"ext":    strings.TrimPrefix(ext, "."),
		"outdir": outdir,
		"driver": file.Driver,
		"index":  strconv.Itoa(file.Index + 1),
	}
}

func expand(template string, vars map[string]string, allowOutput bool) (string, error) {
	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if firstErr != nil {
			return token
		}
		switch {
		case !isKnown(name):
			firstErr = fmt.Errorf("unknown placeholder {%s} in %q", name, template)
		case name == "output" && !allowOutput:
			firstErr = fmt.Errorf("output template cannot reference {output}")
		case name == "output" && vars["output"] == "":
			firstErr = fmt.Errorf("{output} used but the step declares no output")
		case name == "driver" && vars["driver"] == "":
			firstErr = fmt.Errorf("{driver} used but no driver was selected")
		default:
			return vars[name]
		}
		return token
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

func isKnown(name string) bool {
	for _, candidate := range Placeholders {
		if candidate == name {
			return true
		}
	}
	return false
}
