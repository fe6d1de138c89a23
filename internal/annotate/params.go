package annotate

import (
	"github.com/JelleZijlstra/autotyping/internal/config"
	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// paramKindEnabled reports whether the per-kind scalar default rule is on.
func paramKindEnabled(opts *config.Options, k Kind) bool {
	switch k {
	case KindBool:
		return opts.BoolParam
	case KindInt:
		return opts.IntParam
	case KindFloat:
		return opts.FloatParam
	case KindStr:
		return opts.StrParam
	case KindBytes:
		return opts.BytesParam
	}
	return false
}

// ParamVerdict runs the parameter rule chain for one parameter and returns
// the first matching rule's verdict. The chain never fires on annotated
// parameters, splats, separators, or the implicit first method parameter.
func ParamVerdict(p pysrc.Param, isFirst bool, fn *pysrc.Function, opts *config.Options, source []byte) Verdict {
	switch p.Kind {
	case pysrc.ParamPlain, pysrc.ParamDefault:
	default:
		return NoOpinion
	}
	if p.Annotation != nil || p.NameNode == nil {
		return NoOpinion
	}
	if isFirst && fn.IsMethod() && (p.Name == "self" || p.Name == "cls") {
		return NoOpinion
	}

	if p.Default != nil {
		defaultKind := ClassifyExpr(p.Default, source)

		// A True/False default is only ever bool; it must not fall
		// through to the int rule.
		if defaultKind.IsScalar() && paramKindEnabled(opts, defaultKind) {
			return Annotate(Bare(defaultKind.String()))
		}

		if defaultKind == KindNone {
			if mapping, ok := opts.OptionalFor(p.Name); ok {
				return Annotate(Optional(Named(mapping)))
			}
		}
		return guessVerdict(p, opts)
	}

	if mapping, ok := opts.NamedParamFor(p.Name); ok {
		return Annotate(Named(mapping))
	}
	return guessVerdict(p, opts)
}

func guessVerdict(p pysrc.Param, opts *config.Options) Verdict {
	if !opts.GuessCommonNames {
		return NoOpinion
	}
	if t, ok := GuessFromName(p.Name); ok {
		return Annotate(t)
	}
	return NoOpinion
}
