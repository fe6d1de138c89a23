package annotate

import (
	"regexp"
	"strings"
)

// Argument-name guessing, keyed to common naming conventions. A guess is
// usually correct and a reasonable mistake when not; the tables come from
// a large-scale survey of real-world argument names.

var boolNames = stringSet(
	"keepdims", "verbose", "debug", "force", "train", "training",
	"trainable", "bias", "shuffle", "show", "load", "pretrained", "save",
	"overwrite", "normalize", "reverse", "success", "enabled", "strict",
	"copy", "quiet", "required", "inplace", "recursive", "enable",
	"active", "create", "validate", "refresh", "use_bias",
)

var integerNames = stringSet(
	"width", "size", "length", "limit", "idx", "stride", "epoch", "epochs",
	"depth", "pid", "steps", "iteration", "iterations", "vocab_size",
	"ttl", "count", "offset", "seed", "dim", "total", "priority", "port",
	"number", "num", "int",
)

var floatNames = stringSet(
	"real", "imag", "alpha", "theta", "beta", "sigma", "gamma", "angle",
	"reward", "learning_rate", "dropout", "dropout_rate", "epsilon", "eps",
	"prob", "tau", "temperature", "lat", "latitude", "lon", "longitude",
	"radius", "tol", "tolerance", "rate", "treshold", "float",
)

var stringNames = stringSet(
	"text", "txt", "password", "label", "prefix", "suffix", "desc",
	"description", "str", "pattern", "subject", "reason", "comment",
	"prompt", "sentence", "sep", "host", "hostname", "email", "word",
	"slug", "api_key", "char", "character", "string",
)

const containerAlternatives = `deque|list|set|iterator|tuple|iter|iterable`

var (
	containerElemsRe = regexp.MustCompile(`^(` + containerAlternatives + `)_(int|float|str|bool)s?$`)
	elemsContainerRe = regexp.MustCompile(`^(\w*?)_?(` + containerAlternatives + `)$`)
	containerOfRe    = regexp.MustCompile(`^(` + containerAlternatives + `)_of_(\w*)$`)
	numPluralRe      = regexp.MustCompile(`^n(um)?_[a-z_]*s$`)
	pluralRe         = regexp.MustCompile(`^\w*[^s]s$`)
)

func stringSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// GuessFromName guesses an annotation from a parameter name alone.
// The second result is false when no guess is warranted.
func GuessFromName(name string) (TypeExpr, bool) {
	elem, container := guessParts(name)
	if elem == "" {
		return TypeExpr{}, false
	}
	if container == "" {
		return Bare(elem), true
	}
	return Subscripted(container, elem), true
}

// guessParts returns the element type name and an optional typing container.
func guessParts(name string) (elem, container string) {
	// list_ints -> List[int]; restricted to builtin element names to avoid
	// false alarms like list_create.
	if m := containerElemsRe.FindStringSubmatch(name); m != nil {
		return m[2], capitalizeContainer(m[1])
	}

	// latitude_list -> List[float]; set_of_widths -> Set[int].
	m := elemsContainerRe.FindStringSubmatch(name)
	if m == nil {
		if m2 := containerOfRe.FindStringSubmatch(name); m2 != nil {
			m = []string{m2[0], m2[2], m2[1]}
		}
	}
	if m != nil && m[1] != "" {
		elems := m[1]
		for _, entry := range []struct {
			names map[string]bool
			typ   string
		}{
			{map[string]bool{"bool": true, "boolean": true}, "bool"},
			// "real_list" is more likely a list of real things than of
			// floats.
			{withoutKey(floatNames, "real"), "float"},
			{integerNames, "int"},
			{withKeys(stringNames, "string", "str"), "str"},
		} {
			if entry.names[elems] || (strings.HasSuffix(elems, "s") && entry.names[strings.TrimSuffix(elems, "s")]) {
				return entry.typ, capitalizeContainer(m[2])
			}
		}
	}

	if strings.HasPrefix(name, "is_") || boolNames[name] {
		return "bool", ""
	}

	if strings.HasSuffix(name, "_size") ||
		(strings.HasSuffix(name, "size") && !strings.Contains(name, "_")) ||
		numPluralRe.MatchString(name) ||
		integerNames[name] {
		return "int", ""
	}

	if floatNames[name] {
		return "float", ""
	}

	// Filesystem-path names are usually strings, but str annotations here
	// would discourage pathlib.Path; guess nothing.
	if strings.Contains(name, "file") || strings.Contains(name, "path") ||
		strings.HasSuffix(name, "_dir") ||
		name == "fname" || name == "dir" || name == "dirname" ||
		name == "directory" || name == "folder" {
		return "", ""
	}

	if strings.HasSuffix(name, "_name") ||
		(strings.HasSuffix(name, "name") && !strings.Contains(name, "_")) ||
		(strings.Contains(name, "string") && !strings.Contains(name, "as")) ||
		strings.HasSuffix(name, "label") ||
		stringNames[name] {
		return "str", ""
	}

	// Maybe a plural whose singular we know; a single trailing "s" only,
	// to avoid recursing through stacked plurals.
	if pluralRe.MatchString(name) {
		innerElem, innerContainer := guessParts(name[:len(name)-1])
		if innerElem != "" && innerContainer == "" {
			return innerElem, "Sequence"
		}
	}

	return "", ""
}

func capitalizeContainer(name string) string {
	if name == "iter" {
		return "Iterable"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func withoutKey(set map[string]bool, key string) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		if k != key {
			out[k] = true
		}
	}
	return out
}

func withKeys(set map[string]bool, keys ...string) map[string]bool {
	out := make(map[string]bool, len(set)+len(keys))
	for k := range set {
		out[k] = true
	}
	for _, k := range keys {
		out[k] = true
	}
	return out
}
