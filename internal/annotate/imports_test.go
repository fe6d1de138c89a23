package annotate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

func finalizeOn(t *testing.T, src string, reqs ...ImportRequirement) []Insertion {
	t.Helper()
	parser := pysrc.NewParser()
	defer parser.Close()
	file, err := parser.Parse(context.Background(), "test.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer file.Close()

	ledger := NewLedger()
	ledger.Require(reqs...)
	return ledger.Finalize(file)
}

func TestLedgerNewImportLines(t *testing.T) {
	got := finalizeOn(t, "def f():\n    pass\n",
		ImportRequirement{Module: "typing", Name: "Optional"},
		ImportRequirement{Module: "types", Name: "TracebackType"},
		ImportRequirement{Module: "typing", Name: "List"},
	)
	want := []Insertion{{
		Offset: 0,
		Text:   "from types import TracebackType\nfrom typing import List, Optional\n",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Finalize mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerMergesIntoExistingFromImport(t *testing.T) {
	src := "from typing import List\n\ndef f():\n    pass\n"
	got := finalizeOn(t, src, ImportRequirement{Module: "typing", Name: "Optional"})
	want := []Insertion{{
		Offset: uint32(len("from typing import List")),
		Text:   ", Optional",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Finalize mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerSatisfiedRequirementsDropped(t *testing.T) {
	src := "from typing import Optional\nimport types\n\ndef f():\n    pass\n"
	got := finalizeOn(t, src,
		ImportRequirement{Module: "typing", Name: "Optional"},
		ImportRequirement{Module: "types"},
	)
	if len(got) != 0 {
		t.Errorf("Finalize = %+v, want nothing to insert", got)
	}
}

func TestLedgerAliasedImportDoesNotSatisfy(t *testing.T) {
	// "import typing as t" binds t, not Optional; the requirement stands.
	src := "from typing import Optional as Opt\n\ndef f():\n    pass\n"
	got := finalizeOn(t, src, ImportRequirement{Module: "typing", Name: "Optional"})
	if len(got) != 1 {
		t.Fatalf("Finalize = %+v, want one insertion", got)
	}
	if got[0].Text != ", Optional" {
		t.Errorf("Text = %q, want merge of the real name", got[0].Text)
	}
}

func TestLedgerPlainModuleImport(t *testing.T) {
	got := finalizeOn(t, "x = 1\n", ImportRequirement{Module: "types"})
	want := []Insertion{{Offset: 0, Text: "import types\n"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Finalize mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerEmpty(t *testing.T) {
	if got := finalizeOn(t, "def f():\n    pass\n"); got != nil {
		t.Errorf("Finalize = %+v, want nil for empty ledger", got)
	}
}
