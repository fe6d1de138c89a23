// Package config holds the rule configuration for an annotation run.
// Options are built once per invocation, from CLI flags and optionally an
// autotyping.yaml file, and are immutable while files are being processed.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NamedParam maps a parameter name to a type, optionally living in a module
// that must be imported. Parsed from "name:module.Type" or "name:Type".
type NamedParam struct {
	Name     string `yaml:"name"`
	Module   string `yaml:"module,omitempty"`
	TypeName string `yaml:"type"`
}

// ParseNamedParam parses CLI syntax like "uid:my_types.Uid".
// A malformed mapping is a usage error and must abort before any file is
// touched.
func ParseNamedParam(input string) (NamedParam, error) {
	name, typePath, ok := strings.Cut(input, ":")
	if !ok || name == "" || typePath == "" {
		return NamedParam{}, fmt.Errorf("invalid mapping %q: want name:module.Type", input)
	}
	if idx := strings.LastIndex(typePath, "."); idx >= 0 {
		if idx == 0 || idx == len(typePath)-1 {
			return NamedParam{}, fmt.Errorf("invalid mapping %q: empty module or type name", input)
		}
		return NamedParam{Name: name, Module: typePath[:idx], TypeName: typePath[idx+1:]}, nil
	}
	return NamedParam{Name: name, TypeName: typePath}, nil
}

// ParseNamedParams parses a list of CLI mappings, failing on the first bad one.
func ParseNamedParams(inputs []string) ([]NamedParam, error) {
	params := make([]NamedParam, 0, len(inputs))
	for _, in := range inputs {
		p, err := ParseNamedParam(in)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// Options is the full rule configuration for one invocation.
type Options struct {
	// Return rules
	NoneReturn   bool `yaml:"none_return"`
	ScalarReturn bool `yaml:"scalar_return"`

	// Scalar parameter default rules
	BoolParam  bool `yaml:"bool_param"`
	IntParam   bool `yaml:"int_param"`
	FloatParam bool `yaml:"float_param"`
	StrParam   bool `yaml:"str_param"`
	BytesParam bool `yaml:"bytes_param"`

	// Special-method rules
	AnnotateMagics          bool `yaml:"annotate_magics"`
	AnnotateImpreciseMagics bool `yaml:"annotate_imprecise_magics"`

	// Name-convention guessing
	GuessCommonNames bool `yaml:"guess_common_names"`

	// User-supplied name -> type maps
	AnnotateOptionals   []NamedParam `yaml:"annotate_optionals,omitempty"`
	AnnotateNamedParams []NamedParam `yaml:"annotate_named_params,omitempty"`

	// External suggestion report
	PyanalyzeReport    string `yaml:"pyanalyze_report,omitempty"`
	OnlyWithoutImports bool   `yaml:"only_without_imports"`
}

// ApplySafe enables the conservative rule bundle.
func (o *Options) ApplySafe() {
	o.NoneReturn = true
	o.ScalarReturn = true
	o.AnnotateMagics = true
}

// ApplyAggressive enables every rule that takes no arguments.
func (o *Options) ApplyAggressive() {
	o.ApplySafe()
	o.BoolParam = true
	o.IntParam = true
	o.FloatParam = true
	o.StrParam = true
	o.BytesParam = true
	o.AnnotateImpreciseMagics = true
}

// HasParamRules reports whether any per-parameter rule could fire.
func (o *Options) HasParamRules() bool {
	return o.BoolParam || o.IntParam || o.FloatParam || o.StrParam || o.BytesParam ||
		o.GuessCommonNames || len(o.AnnotateOptionals) > 0 || len(o.AnnotateNamedParams) > 0
}

// OptionalFor returns the optional-parameter mapping for name, if any.
func (o *Options) OptionalFor(name string) (NamedParam, bool) {
	for _, p := range o.AnnotateOptionals {
		if p.Name == name {
			return p, true
		}
	}
	return NamedParam{}, false
}

// NamedParamFor returns the non-defaulted-parameter mapping for name, if any.
func (o *Options) NamedParamFor(name string) (NamedParam, bool) {
	for _, p := range o.AnnotateNamedParams {
		if p.Name == name {
			return p, true
		}
	}
	return NamedParam{}, false
}

// Fingerprint is a stable rendering of the options used to key cached
// results: a file processed under the same fingerprint need not be
// re-processed if its content has not changed.
func (o *Options) Fingerprint() string {
	var sb strings.Builder
	flags := []struct {
		name string
		on   bool
	}{
		{"none_return", o.NoneReturn},
		{"scalar_return", o.ScalarReturn},
		{"bool_param", o.BoolParam},
		{"int_param", o.IntParam},
		{"float_param", o.FloatParam},
		{"str_param", o.StrParam},
		{"bytes_param", o.BytesParam},
		{"annotate_magics", o.AnnotateMagics},
		{"annotate_imprecise_magics", o.AnnotateImpreciseMagics},
		{"guess_common_names", o.GuessCommonNames},
		{"only_without_imports", o.OnlyWithoutImports},
	}
	for _, f := range flags {
		if f.on {
			sb.WriteString(f.name)
			sb.WriteByte(';')
		}
	}
	for _, p := range o.AnnotateOptionals {
		fmt.Fprintf(&sb, "opt:%s:%s.%s;", p.Name, p.Module, p.TypeName)
	}
	for _, p := range o.AnnotateNamedParams {
		fmt.Fprintf(&sb, "named:%s:%s.%s;", p.Name, p.Module, p.TypeName)
	}
	if o.PyanalyzeReport != "" {
		fmt.Fprintf(&sb, "report:%s;", o.PyanalyzeReport)
	}
	return sb.String()
}

// Load reads options from a YAML config file. A missing file yields zero
// options; a malformed file is a startup error.
func Load(path string) (*Options, error) {
	opts := &Options{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return opts, nil
}
