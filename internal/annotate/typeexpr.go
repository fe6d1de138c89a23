// Package annotate implements the annotation decision and rewrite engine:
// literal classification, return shape analysis, the parameter rule chain,
// pyanalyze suggestion merging, import bookkeeping, and the single-pass
// rewrite driver that applies accepted verdicts to a source file.
package annotate

import "github.com/JelleZijlstra/autotyping/internal/config"

// ImportRequirement is one import an inserted annotation needs. Two
// requirements are the same import iff module and name match.
type ImportRequirement struct {
	Module string
	Name   string // empty for a plain "import Module"
}

// TypeExpr is an annotation to insert, rendered to Python syntax by Code.
// Imports carries every import the rendered expression needs; a TypeExpr
// naming anything outside builtins must list it here.
type TypeExpr struct {
	// Code is the annotation text, e.g. "int", "Optional[Uid]",
	// "List[str]".
	Code    string
	Imports []ImportRequirement
}

// Bare returns a TypeExpr for a builtin name needing no imports.
func Bare(name string) TypeExpr {
	return TypeExpr{Code: name}
}

// Named returns a TypeExpr for a user-configured name mapping, importing
// the type from its module when one is given.
func Named(p config.NamedParam) TypeExpr {
	t := TypeExpr{Code: p.TypeName}
	if p.Module != "" {
		t.Imports = []ImportRequirement{{Module: p.Module, Name: p.TypeName}}
	}
	return t
}

// Optional wraps a TypeExpr in typing.Optional.
func Optional(inner TypeExpr) TypeExpr {
	imports := append([]ImportRequirement{{Module: "typing", Name: "Optional"}}, inner.Imports...)
	return TypeExpr{Code: "Optional[" + inner.Code + "]", Imports: imports}
}

// Subscripted returns Container[elem] with the container imported from
// typing, as used by the argument-name guesser.
func Subscripted(container, elem string) TypeExpr {
	return TypeExpr{
		Code:    container + "[" + elem + "]",
		Imports: []ImportRequirement{{Module: "typing", Name: container}},
	}
}

// Verdict is a rule engine's decision for one annotation site: no opinion
// (zero value) or annotate with Type.
type Verdict struct {
	Matched bool
	Type    TypeExpr
}

// Annotate returns a matched verdict.
func Annotate(t TypeExpr) Verdict {
	return Verdict{Matched: true, Type: t}
}

// NoOpinion is the verdict of an engine that declines a site.
var NoOpinion = Verdict{}
