package annotate

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// ReturnShape classifies what a function body does with returns.
type ReturnShape int

const (
	// ShapeMixed: inconsistent or unclassifiable returns; no proposal.
	ShapeMixed ReturnShape = iota
	// ShapeEmpty: no return carries a value and the body never yields.
	// Raising does not disqualify; raising is compatible with None.
	ShapeEmpty
	// ShapeScalar: every return carries a value of one consistent scalar
	// kind.
	ShapeScalar
)

// ReturnAnalysis is the result of analyzing one function body.
type ReturnAnalysis struct {
	Shape ReturnShape
	Kind  Kind // valid when Shape == ShapeScalar
}

type returnWalk struct {
	source     []byte
	valued     bool
	bare       bool
	yielded    bool
	kinds      map[Kind]bool
	anyUnknown bool
}

// AnalyzeReturns classifies the return behavior of a function body. The
// walk is local to the function: nested defs and lambdas keep their own
// returns and yields.
func AnalyzeReturns(body *sitter.Node, source []byte) ReturnAnalysis {
	w := &returnWalk{source: source, kinds: make(map[Kind]bool)}
	if body != nil {
		w.walk(body)
	}

	if w.yielded {
		// Generators need parameterized generics this analyzer does not
		// attempt.
		return ReturnAnalysis{Shape: ShapeMixed}
	}
	if !w.valued {
		return ReturnAnalysis{Shape: ShapeEmpty}
	}
	if w.bare || w.anyUnknown || len(w.kinds) != 1 {
		return ReturnAnalysis{Shape: ShapeMixed}
	}
	for k := range w.kinds {
		if k.IsScalar() {
			return ReturnAnalysis{Shape: ShapeScalar, Kind: k}
		}
	}
	return ReturnAnalysis{Shape: ShapeMixed}
}

func containsYield(n *sitter.Node) bool {
	if n.Type() == pysrc.NodeYield {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case pysrc.NodeFunctionDef, pysrc.NodeLambda:
			continue
		}
		if containsYield(child) {
			return true
		}
	}
	return false
}

func (w *returnWalk) walk(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case pysrc.NodeFunctionDef, pysrc.NodeLambda:
			// A nested scope's returns are not ours.
			continue
		case pysrc.NodeReturn:
			if child.NamedChildCount() > 0 {
				value := child.NamedChild(0)
				// return (yield x) still makes a generator.
				if containsYield(value) {
					w.yielded = true
					continue
				}
				w.valued = true
				k := ClassifyExpr(value, w.source)
				if k == KindUnknown {
					w.anyUnknown = true
				} else {
					w.kinds[k] = true
				}
			} else {
				w.bare = true
			}
		case pysrc.NodeYield:
			w.yielded = true
		default:
			w.walk(child)
		}
	}
}
