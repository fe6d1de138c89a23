package annotate

// simpleMagics maps special-method names whose return type follows from the
// name alone. The name match is authoritative: the body is never consulted.
var simpleMagics = map[string]string{
	"__exit__":     "None",
	"__aexit__":    "None",
	"__str__":      "str",
	"__repr__":     "str",
	"__len__":      "int",
	"__init__":     "None",
	"__del__":      "None",
	"__bool__":     "bool",
	"__bytes__":    "bytes",
	"__format__":   "str",
	"__contains__": "bool",
	"__complex__":  "complex",
	"__int__":      "int",
	"__float__":    "float",
	"__index__":    "int",
}

// impreciseMagics maps protocol methods whose element type cannot be
// determined locally; they get a bare typing.Iterator rather than nothing.
var impreciseMagics = map[string]ImportRequirement{
	"__iter__":     {Module: "typing", Name: "Iterator"},
	"__reversed__": {Module: "typing", Name: "Iterator"},
	"__await__":    {Module: "typing", Name: "Iterator"},
}

// exitParamTypes are the forced annotations for the three exception
// parameters of __exit__/__aexit__, in positional order after self.
var exitParamTypes = []TypeExpr{
	{
		Code: "Optional[Type[BaseException]]",
		Imports: []ImportRequirement{
			{Module: "typing", Name: "Optional"},
			{Module: "typing", Name: "Type"},
		},
	},
	{
		Code:    "Optional[BaseException]",
		Imports: []ImportRequirement{{Module: "typing", Name: "Optional"}},
	},
	{
		Code: "Optional[TracebackType]",
		Imports: []ImportRequirement{
			{Module: "typing", Name: "Optional"},
			{Module: "types", Name: "TracebackType"},
		},
	},
}

// SimpleMagicReturn looks up the fixed return annotation for a special
// method name.
func SimpleMagicReturn(name string) (TypeExpr, bool) {
	typeName, ok := simpleMagics[name]
	if !ok {
		return TypeExpr{}, false
	}
	return Bare(typeName), true
}

// ImpreciseMagicReturn looks up the imprecise return annotation for an
// iteration-protocol method name.
func ImpreciseMagicReturn(name string) (TypeExpr, bool) {
	req, ok := impreciseMagics[name]
	if !ok {
		return TypeExpr{}, false
	}
	return TypeExpr{Code: req.Name, Imports: []ImportRequirement{req}}, true
}

// IsExitMethod reports whether name is a context-manager exit method.
func IsExitMethod(name string) bool {
	return name == "__exit__" || name == "__aexit__"
}
