package annotate

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/JelleZijlstra/autotyping/internal/config"
	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// Engine runs the rule engines over one parsed file and produces the
// rewritten source. An Engine is immutable after construction and safe to
// share across files; all mutable state lives in the per-file transform.
type Engine struct {
	opts        *config.Options
	suggestions *Suggestions
	logger      *zap.Logger
}

// New builds an engine from an immutable rule configuration.
func New(opts *config.Options, suggestions *Suggestions, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, suggestions: suggestions, logger: logger}
}

// Rewrite runs one traversal over the file and returns the annotated
// source. changed is false when no rule fired; the input is never mutated,
// so a failure can never leave a half-written tree.
func (e *Engine) Rewrite(f *pysrc.File) (out []byte, changed bool, err error) {
	t := &transform{
		engine: e,
		file:   f,
		ledger: NewLedger(),
	}
	for _, fn := range f.Functions() {
		t.visitFunction(fn)
	}
	t.insertions = append(t.insertions, t.ledger.Finalize(f)...)
	if len(t.insertions) == 0 {
		return f.Source, false, nil
	}
	return applyInsertions(f.Source, t.insertions), true, nil
}

// transform is the state of one file's traversal: the queued insertions
// and the import ledger, discarded when the file is done.
type transform struct {
	engine     *Engine
	file       *pysrc.File
	ledger     *Ledger
	insertions []Insertion
}

func (t *transform) accept(site string, offset uint32, prefix string, typ TypeExpr) {
	t.insertions = append(t.insertions, Insertion{Offset: offset, Text: prefix + typ.Code})
	t.ledger.Require(typ.Imports...)
	t.engine.logger.Debug("annotating",
		zap.String("file", t.file.Path),
		zap.String("site", site),
		zap.String("type", typ.Code))
}

func (t *transform) visitFunction(fn *pysrc.Function) {
	opts := t.engine.opts

	exitClaimed := false
	if opts.AnnotateMagics && IsExitMethod(fn.Name) {
		exitClaimed = t.annotateExitParams(fn)
	}

	if fn.ReturnType == nil {
		if v := t.returnVerdict(fn); v.Matched {
			t.accept(fn.Name, fn.ParamsNode.EndByte(), " -> ", v.Type)
		}
	}

	first := true
	for _, p := range fn.Params {
		switch p.Kind {
		case pysrc.ParamKeywordSep, pysrc.ParamPositionalSep, pysrc.ParamOther:
			continue
		}
		isFirst := first
		first = false
		if p.Annotation != nil || p.NameNode == nil {
			continue
		}
		if exitClaimed {
			// The special-method table claimed the exception triple.
			continue
		}
		v := ParamVerdict(p, isFirst, fn, opts, t.file.Source)
		if !v.Matched {
			v = t.suggestionFor(p.Node)
		}
		if v.Matched {
			t.accept(fn.Name+"("+p.Name+")", p.NameNode.EndByte(), ": ", v.Type)
		}
	}
}

// returnVerdict runs the return-position rule chain in priority order:
// special-method tables, then body-shape rules, then external suggestions.
func (t *transform) returnVerdict(fn *pysrc.Function) Verdict {
	opts := t.engine.opts

	if opts.AnnotateMagics {
		if typ, ok := SimpleMagicReturn(fn.Name); ok {
			return Annotate(typ)
		}
	}
	if opts.AnnotateImpreciseMagics {
		if typ, ok := ImpreciseMagicReturn(fn.Name); ok {
			return Annotate(typ)
		}
	}

	if (opts.NoneReturn || opts.ScalarReturn) && !t.bodyRulesSuppressed(fn) {
		analysis := AnalyzeReturns(fn.Body, t.file.Source)
		switch {
		case opts.NoneReturn && analysis.Shape == ShapeEmpty:
			return Annotate(Bare("None"))
		case opts.ScalarReturn && analysis.Shape == ShapeScalar:
			return Annotate(Bare(analysis.Kind.String()))
		}
	}

	return t.suggestionFor(fn.PositionNode())
}

// bodyRulesSuppressed reports whether empty/scalar proposals are off for
// this function: stubs, abstract methods, overload signatures, and
// protocol bodies carry no evidence about the real return behavior.
func (t *transform) bodyRulesSuppressed(fn *pysrc.Function) bool {
	if t.file.IsStub() {
		return true
	}
	if fn.Class != nil && fn.Class.IsProtocol() {
		return true
	}
	for _, name := range fn.DecoratorNames(t.file) {
		switch name {
		case "abstractmethod", "abc.abstractmethod", "overload", "typing.overload":
			return true
		}
	}
	return false
}

func (t *transform) suggestionFor(n *sitter.Node) Verdict {
	if t.engine.suggestions.Len() == 0 {
		return NoOpinion
	}
	return t.engine.suggestions.Lookup(
		t.file.Path, pysrc.Line(n), pysrc.Col(n), t.engine.opts.OnlyWithoutImports)
}

// annotateExitParams forces the exception-triple annotations on
// __exit__/__aexit__: exactly self plus three plain positional parameters,
// no star or keyword-only parameters. Reports whether the shape matched
// and the table therefore claimed the parameters.
func (t *transform) annotateExitParams(fn *pysrc.Function) bool {
	var positional []pysrc.Param
	for _, p := range fn.Params {
		switch p.Kind {
		case pysrc.ParamSplat, pysrc.ParamDictSplat, pysrc.ParamKeywordSep:
			return false
		case pysrc.ParamPositionalSep, pysrc.ParamOther:
			continue
		default:
			positional = append(positional, p)
		}
	}
	if len(positional) != 4 {
		return false
	}
	for i, typ := range exitParamTypes {
		p := positional[i+1]
		if p.Annotation != nil || p.NameNode == nil {
			continue
		}
		t.accept(fn.Name+"("+p.Name+")", p.NameNode.EndByte(), ": ", typ)
	}
	return true
}

// applyInsertions splices the queued insertions into src, highest offset
// first so earlier offsets stay stable.
func applyInsertions(src []byte, insertions []Insertion) []byte {
	sorted := make([]Insertion, len(insertions))
	copy(sorted, insertions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset > sorted[j].Offset
	})

	out := append([]byte(nil), src...)
	for _, ins := range sorted {
		off := int(ins.Offset)
		if off > len(out) {
			off = len(out)
		}
		next := make([]byte, 0, len(out)+len(ins.Text))
		next = append(next, out[:off]...)
		next = append(next, ins.Text...)
		next = append(next, out[off:]...)
		out = next
	}
	return out
}
