package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderDiffEqualInputs(t *testing.T) {
	src := []byte("def f():\n    pass\n")
	assert.Empty(t, renderDiff("a.py", src, src))
}

func TestRenderDiffAnnotatedLine(t *testing.T) {
	before := []byte("def f(x=True):\n    pass\n")
	after := []byte("def f(x: bool=True) -> None:\n    pass\n")

	out := renderDiff("a.py", before, after)
	assert.Contains(t, out, "--- a.py")
	assert.Contains(t, out, "+++ a.py (annotated)")
	assert.Contains(t, out, "- def f(x=True):")
	assert.Contains(t, out, "+ def f(x: bool=True) -> None:")
	// Unchanged lines are not echoed.
	assert.NotContains(t, out, "pass")
}

func TestRenderDiffInsertedImportLine(t *testing.T) {
	before := []byte("import os\n\ndef f(uid=None):\n    pass\n")
	after := []byte("import os\nfrom typing import Optional\n\ndef f(uid: Optional[int]=None):\n    pass\n")

	out := renderDiff("a.py", before, after)
	lines := strings.Split(out, "\n")

	// The new import is a pure insertion, not a rewrite of the blank line.
	assert.Contains(t, out, "+ from typing import Optional")
	assert.NotContains(t, out, "- \n")
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") && strings.TrimSpace(line) == "-" {
			t.Errorf("blank line wrongly reported as removed: %q", line)
		}
	}
	assert.Contains(t, out, "- def f(uid=None):")
	assert.Contains(t, out, "+ def f(uid: Optional[int]=None):")
}

func TestRenderDiffTrailingInsertions(t *testing.T) {
	before := []byte("x = 1")
	after := []byte("x = 1\ny = 2")

	out := renderDiff("a.py", before, after)
	assert.Contains(t, out, "+ y = 2")
	assert.NotContains(t, out, "- x = 1")
}
