package annotate

import (
	"sort"
	"strings"

	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// Insertion is a piece of text to splice into the original source at a
// byte offset. The rewrite applies insertions highest-offset first so
// earlier offsets stay valid.
type Insertion struct {
	Offset uint32
	Text   string
}

// Ledger tracks the imports the annotations inserted into one file
// require. It lives for a single file transform and is discarded after.
type Ledger struct {
	needed map[ImportRequirement]bool
}

// NewLedger returns an empty per-file ledger.
func NewLedger() *Ledger {
	return &Ledger{needed: make(map[ImportRequirement]bool)}
}

// Require records imports an accepted verdict needs. Duplicates collapse.
func (l *Ledger) Require(reqs ...ImportRequirement) {
	for _, r := range reqs {
		l.needed[r] = true
	}
}

// Empty reports whether no imports are pending.
func (l *Ledger) Empty() bool {
	return len(l.needed) == 0
}

// Finalize resolves the pending requirements against the file's existing
// imports and returns the insertions that satisfy the rest: names appended
// to an existing from-import of the same module, new import lines for
// everything else.
func (l *Ledger) Finalize(f *pysrc.File) []Insertion {
	if l.Empty() {
		return nil
	}
	existing := f.Imports()

	pending := make([]ImportRequirement, 0, len(l.needed))
	for req := range l.needed {
		if !satisfied(req, existing) {
			pending = append(pending, req)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Module != pending[j].Module {
			return pending[i].Module < pending[j].Module
		}
		return pending[i].Name < pending[j].Name
	})
	if len(pending) == 0 {
		return nil
	}

	var insertions []Insertion

	// Append to an existing from-import of the same module where one
	// exists, instead of adding a second statement.
	mergeText := make(map[uint32][]string)
	newByModule := make(map[string][]string)
	var plainModules []string
	var moduleOrder []string
	for _, req := range pending {
		if req.Name == "" {
			plainModules = append(plainModules, req.Module)
			continue
		}
		if stmt := mergeTarget(req.Module, existing); stmt != nil {
			mergeText[stmt.LastNameEnd] = append(mergeText[stmt.LastNameEnd], req.Name)
			continue
		}
		if _, ok := newByModule[req.Module]; !ok {
			moduleOrder = append(moduleOrder, req.Module)
		}
		newByModule[req.Module] = append(newByModule[req.Module], req.Name)
	}

	for offset, names := range mergeText {
		insertions = append(insertions, Insertion{
			Offset: offset,
			Text:   ", " + strings.Join(names, ", "),
		})
	}

	var lines []string
	for _, mod := range plainModules {
		lines = append(lines, "import "+mod)
	}
	for _, mod := range moduleOrder {
		lines = append(lines, "from "+mod+" import "+strings.Join(newByModule[mod], ", "))
	}
	if len(lines) > 0 {
		insertions = append(insertions, Insertion{
			Offset: importInsertOffset(f),
			Text:   strings.Join(lines, "\n") + "\n",
		})
	}
	return insertions
}

// satisfied reports whether an existing import statement already provides
// the requirement. An aliased import binds a different name and does not
// count.
func satisfied(req ImportRequirement, existing []pysrc.Import) bool {
	for _, im := range existing {
		if req.Name == "" {
			if im.IsFrom {
				continue
			}
			for _, n := range im.Names {
				if n.Name == req.Module && (n.Alias == "" || n.Alias == req.Module) {
					return true
				}
			}
			continue
		}
		if !im.IsFrom || im.Module != req.Module {
			continue
		}
		for _, n := range im.Names {
			if n.Name == req.Name && (n.Alias == "" || n.Alias == req.Name) {
				return true
			}
		}
	}
	return false
}

// mergeTarget finds an existing from-import statement for module that a
// new name can be appended to.
func mergeTarget(module string, existing []pysrc.Import) *pysrc.Import {
	for i := range existing {
		im := &existing[i]
		if im.IsFrom && im.Module == module && im.LastNameEnd > 0 {
			return im
		}
	}
	return nil
}

// importInsertOffset is where new import lines go: the start of the line
// after the module docstring, any leading comments (shebang, coding
// cookie), and any __future__ imports.
func importInsertOffset(f *pysrc.File) uint32 {
	pos := f.DocstringEnd()
	if pos == 0 {
		for _, child := range pysrc.NamedChildren(f.Root()) {
			if child.Type() != pysrc.NodeComment {
				break
			}
			pos = child.EndByte()
		}
	}
	for _, im := range f.Imports() {
		if im.IsFuture() {
			if end := im.Node.EndByte(); end > pos {
				pos = end
			}
		}
	}
	if pos == 0 {
		return 0
	}
	src := f.Source
	for int(pos) < len(src) && src[pos] != '\n' {
		pos++
	}
	if int(pos) < len(src) {
		pos++
	}
	return pos
}
