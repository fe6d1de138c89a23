package annotate

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// Kind classifies an expression as a literal of a known scalar kind.
// KindUnknown is the normal outcome for anything unrecognized, never an
// error.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindNone
)

// String returns the Python name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindNone:
		return "None"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind is one of the five annotatable scalar
// kinds.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindStr, KindBytes:
		return true
	}
	return false
}

// strLiteralMethods are string methods whose result is always str when
// called on a string literal.
var strLiteralMethods = map[string]bool{
	"format": true,
	"lower":  true,
	"upper":  true,
	"title":  true,
}

// ClassifyExpr classifies a single expression node. It is pure: it looks at
// nothing beyond the node and the source bytes it spans.
func ClassifyExpr(n *sitter.Node, source []byte) Kind {
	if n == nil {
		return KindUnknown
	}
	switch n.Type() {
	case "true", "false":
		return KindBool
	case "integer":
		return KindInt
	case "float":
		return KindFloat
	case "none":
		return KindNone
	case "string":
		return classifyString(n, source)
	case "concatenated_string":
		return classifyCommonKind(n, source)
	case "not_operator":
		return KindBool
	case "unary_operator":
		// -1 and +1.5 are numeric literals of the operand's kind.
		arg := n.ChildByFieldName("argument")
		if arg == nil {
			return KindUnknown
		}
		switch ClassifyExpr(arg, source) {
		case KindInt:
			return KindInt
		case KindFloat:
			return KindFloat
		}
		return KindUnknown
	case "binary_operator":
		// "%s" % x is str, b"%s" % x is bytes, regardless of the right
		// operand.
		op := n.ChildByFieldName("operator")
		left := n.ChildByFieldName("left")
		if op == nil || left == nil || string(source[op.StartByte():op.EndByte()]) != "%" {
			return KindUnknown
		}
		if k := ClassifyExpr(left, source); k == KindStr || k == KindBytes {
			return k
		}
		return KindUnknown
	case "boolean_operator":
		// and/or short-circuits to one of its operands; a common kind is
		// the result's kind.
		left := ClassifyExpr(n.ChildByFieldName("left"), source)
		right := ClassifyExpr(n.ChildByFieldName("right"), source)
		if left == right {
			return left
		}
		return KindUnknown
	case "comparison_operator":
		// Comparisons and chained comparisons always yield bool.
		return KindBool
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return ClassifyExpr(n.NamedChild(0), source)
		}
		return KindUnknown
	case "call":
		return classifyCall(n, source)
	}
	return KindUnknown
}

// classifyString distinguishes str from bytes by the literal's prefix
// characters before the opening quote.
func classifyString(n *sitter.Node, source []byte) Kind {
	text := source[n.StartByte():n.EndByte()]
	for _, c := range text {
		if c == '"' || c == '\'' {
			break
		}
		if c == 'b' || c == 'B' {
			return KindBytes
		}
	}
	return KindStr
}

// classifyCommonKind classifies implicitly concatenated string literals:
// all pieces must agree on a kind.
func classifyCommonKind(n *sitter.Node, source []byte) Kind {
	kind := KindUnknown
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == pysrc.NodeComment {
			continue
		}
		k := ClassifyExpr(child, source)
		if k == KindUnknown {
			return KindUnknown
		}
		if kind == KindUnknown {
			kind = k
		} else if kind != k {
			return KindUnknown
		}
	}
	return kind
}

// classifyCall recognizes "...".format(...) and friends, which always
// produce str.
func classifyCall(n *sitter.Node, source []byte) Kind {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != pysrc.NodeAttribute {
		return KindUnknown
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if obj == nil || attr == nil {
		return KindUnknown
	}
	if obj.Type() != "string" && obj.Type() != "concatenated_string" {
		return KindUnknown
	}
	if ClassifyExpr(obj, source) != KindStr {
		return KindUnknown
	}
	if !strLiteralMethods[strings.TrimSpace(string(source[attr.StartByte():attr.EndByte()]))] {
		return KindUnknown
	}
	return KindStr
}
