// Package matchfile loads espanso-compatible YAML match files into the
// in-memory rule set.
//
// The loader owns everything about the on-disk format: recursive file
// discovery, YAML parsing, schema validation, and skipping entries that
// use upstream features this engine does not reproduce (regex triggers,
// word boundaries, forms, rich replacement content). The engine only
// ever sees fully valid rules.
package matchfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"expandd/internal/logging"
	"expandd/internal/rules"
)

//go:embed schema.json
var schemaJSON []byte

// document mirrors the espanso match file layout.
type document struct {
	Matches    []matchEntry `yaml:"matches"`
	GlobalVars []varEntry   `yaml:"global_vars"`
}

type matchEntry struct {
	Trigger  string     `yaml:"trigger"`
	Triggers []string   `yaml:"triggers"`
	Replace  *string    `yaml:"replace"`
	Vars     []varEntry `yaml:"vars"`

	// Upstream features detected for skip-on-unsupported.
	Word          bool    `yaml:"word"`
	Regex         string  `yaml:"regex"`
	Form          string  `yaml:"form"`
	Markdown      *string `yaml:"markdown"`
	HTML          *string `yaml:"html"`
	PropagateCase bool    `yaml:"propagate_case"`
}

type varEntry struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Params varParams `yaml:"params"`
}

type varParams struct {
	Format string `yaml:"format"`
	Cmd    string `yaml:"cmd"`
	Echo   string `yaml:"echo"`
}

// Loader discovers and parses match files.
type Loader struct {
	// Dirs are the directories searched recursively for *.yml and
	// *.yaml files, in order. Load order is the file discovery order,
	// which decides first-loaded-wins conflicts.
	Dirs []string

	// Strict makes schema validation failures fatal instead of
	// skip-with-warning.
	Strict bool

	schema *jsonschema.Schema
}

// New creates a loader over the given directories.
func New(dirs []string) (*Loader, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("matchfile.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("matchfile.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Loader{Dirs: dirs, schema: schema}, nil
}

// Load walks all directories and builds the rule set. Missing
// directories and unparseable files are skipped with a warning; Load
// fails only on schema violations in strict mode.
func (l *Loader) Load() (*rules.Set, error) {
	var (
		loaded  []rules.Rule
		globals []rules.VariableDef
	)

	for _, dir := range l.Dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.Warn("cannot read match path", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yml" && ext != ".yaml" {
				return nil
			}

			fileRules, fileGlobals, err := l.loadFile(path)
			if err != nil {
				if l.Strict {
					return err
				}
				logging.Warn("skipping match file", "path", path, "error", err)
				return nil
			}
			if len(fileRules) > 0 {
				logging.Info("loaded match file", "path", path, "matches", len(fileRules))
			}
			loaded = append(loaded, fileRules...)
			globals = append(globals, fileGlobals...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return rules.NewSet(loaded, globals), nil
}

// loadFile parses and validates one match file.
func (l *Loader) loadFile(path string) ([]rules.Rule, []rules.VariableDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if err := l.validateSchema(data); err != nil {
		return nil, nil, fmt.Errorf("schema: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}

	var out []rules.Rule
	for i, m := range doc.Matches {
		rule, ok := convertMatch(path, i, m)
		if !ok {
			continue
		}
		out = append(out, rule)
	}

	var globals []rules.VariableDef
	for _, v := range doc.GlobalVars {
		def, ok := convertVar(path, v)
		if !ok {
			continue
		}
		globals = append(globals, def)
	}

	return out, globals, nil
}

// validateSchema checks the raw YAML document against the embedded
// schema. YAML is decoded generically and round-tripped through JSON so
// the validator sees plain maps and slices.
func (l *Loader) validateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(jsonData, &instance); err != nil {
		return err
	}

	return l.schema.Validate(instance)
}

// convertMatch turns one match entry into a rule, reporting ok=false for
// entries the engine must never see.
func convertMatch(path string, idx int, m matchEntry) (rules.Rule, bool) {
	switch {
	case m.Regex != "":
		logging.Warn("skipping unsupported regex match", "path", path, "index", idx)
		return rules.Rule{}, false
	case m.Form != "":
		logging.Warn("skipping unsupported form match", "path", path, "index", idx)
		return rules.Rule{}, false
	case m.Markdown != nil || m.HTML != nil:
		logging.Warn("skipping unsupported rich-content match", "path", path, "index", idx)
		return rules.Rule{}, false
	case m.Word || m.PropagateCase:
		logging.Warn("skipping match with unsupported word/case options", "path", path, "index", idx)
		return rules.Rule{}, false
	}

	if m.Replace == nil {
		logging.Warn("skipping match without replace", "path", path, "index", idx)
		return rules.Rule{}, false
	}

	// Singular trigger and plural triggers combine.
	var triggers []string
	if m.Trigger != "" {
		triggers = append(triggers, m.Trigger)
	}
	for _, t := range m.Triggers {
		if t != "" {
			triggers = append(triggers, t)
		}
	}
	if len(triggers) == 0 {
		logging.Warn("skipping match without trigger", "path", path, "index", idx)
		return rules.Rule{}, false
	}

	var defs []rules.VariableDef
	for _, v := range m.Vars {
		def, ok := convertVar(path, v)
		if !ok {
			continue
		}
		defs = append(defs, def)
	}

	return rules.Rule{Triggers: triggers, Replace: *m.Replace, Vars: defs}, true
}

// convertVar maps one variable entry to a definition.
func convertVar(path string, v varEntry) (rules.VariableDef, bool) {
	if v.Name == "" {
		logging.Warn("skipping variable without name", "path", path)
		return rules.VariableDef{}, false
	}

	kind, err := rules.ParseVarKind(v.Type)
	if err != nil {
		logging.Warn("skipping variable with unsupported type",
			"path", path, "name", v.Name, "type", v.Type)
		return rules.VariableDef{}, false
	}

	def := rules.VariableDef{Name: v.Name, Kind: kind}
	switch kind {
	case rules.VarEcho:
		// espanso accepts either params.echo or params.format.
		if v.Params.Echo != "" {
			def.Format = v.Params.Echo
		} else {
			def.Format = v.Params.Format
		}
	case rules.VarDate:
		def.Format = v.Params.Format
	case rules.VarShell:
		def.Cmd = v.Params.Cmd
	}

	return def, true
}

// DefaultDir returns the XDG config path for match files.
func DefaultDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "expandd", "match")
}
