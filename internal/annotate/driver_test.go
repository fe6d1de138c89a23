package annotate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JelleZijlstra/autotyping/internal/config"
	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

func rewriteFile(t *testing.T, path, src string, opts *config.Options, suggestions *Suggestions) string {
	t.Helper()
	parser := pysrc.NewParser()
	defer parser.Close()
	file, err := parser.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	defer file.Close()

	out, _, err := New(opts, suggestions, zap.NewNop()).Rewrite(file)
	require.NoError(t, err)
	return string(out)
}

func rewrite(t *testing.T, src string, opts *config.Options) string {
	t.Helper()
	return rewriteFile(t, "test.py", src, opts, nil)
}

func TestRewriteNoop(t *testing.T) {
	src := "def f():\n    pass\n"
	// With nothing enabled, nothing changes.
	assert.Equal(t, src, rewrite(t, src, &config.Options{}))
}

func TestNoneReturn(t *testing.T) {
	src := `def foo():
    pass

def bar():
    return 1

def baz():
    return
`
	want := `def foo() -> None:
    pass

def bar():
    return 1

def baz() -> None:
    return
`
	assert.Equal(t, want, rewrite(t, src, &config.Options{NoneReturn: true}))

	// Disabled: unchanged.
	assert.Equal(t, src, rewrite(t, src, &config.Options{ScalarReturn: true}))
}

func TestNoneReturnRaisingBody(t *testing.T) {
	src := `def fail():
    raise ValueError("nope")
`
	want := `def fail() -> None:
    raise ValueError("nope")
`
	// Raising is compatible with a None return type.
	assert.Equal(t, want, rewrite(t, src, &config.Options{NoneReturn: true}))
}

func TestNoneReturnSkipsGenerators(t *testing.T) {
	src := `def gen():
    yield 1
`
	assert.Equal(t, src, rewrite(t, src, &config.Options{NoneReturn: true, ScalarReturn: true}))
}

func TestNoneReturnSkipsAbstractAndOverload(t *testing.T) {
	src := `import abc

class Base:
    @abc.abstractmethod
    def run(self):
        ...

    @overload
    def get(self, key):
        ...
`
	assert.Equal(t, src, rewrite(t, src, &config.Options{NoneReturn: true}))
}

func TestNoneReturnSkipsProtocolBody(t *testing.T) {
	src := `from typing import Protocol

class Closer(Protocol):
    def close(self):
        ...

class Real:
    def close(self):
        ...
`
	got := rewrite(t, src, &config.Options{NoneReturn: true})
	assert.Contains(t, got, "class Real:\n    def close(self) -> None:")
	assert.Contains(t, got, "class Closer(Protocol):\n    def close(self):")
}

func TestNoneReturnSkipsStubFiles(t *testing.T) {
	src := "def f():\n    ...\n"
	got := rewriteFile(t, "test.pyi", src, &config.Options{NoneReturn: true}, nil)
	assert.Equal(t, src, got)
}

func TestScalarReturn(t *testing.T) {
	src := `def f(x):
    if x:
        return 1
    return 2
`
	want := `def f(x) -> int:
    if x:
        return 1
    return 2
`
	assert.Equal(t, want, rewrite(t, src, &config.Options{ScalarReturn: true}))
}

func TestScalarReturnMixedKinds(t *testing.T) {
	src := `def f(x):
    if x:
        return 1
    return "x"
`
	opts := &config.Options{}
	opts.ApplyAggressive()
	assert.Equal(t, src, rewrite(t, src, opts))
}

func TestScalarReturnBareReturnMixesIn(t *testing.T) {
	src := `def f(x):
    if x:
        return
    return 1
`
	assert.Equal(t, src, rewrite(t, src, &config.Options{ScalarReturn: true, NoneReturn: true}))
}

func TestScalarReturnNestedDefKeepsItsReturns(t *testing.T) {
	src := `def outer():
    def inner():
        return 1
    inner()
`
	want := `def outer() -> None:
    def inner() -> int:
        return 1
    inner()
`
	assert.Equal(t, want, rewrite(t, src, &config.Options{NoneReturn: true, ScalarReturn: true}))
}

func TestBoolParam(t *testing.T) {
	src := `def foo(x = False, y = 0, z: int = False):
    pass
`
	want := `def foo(x: bool = False, y = 0, z: int = False):
    pass
`
	assert.Equal(t, want, rewrite(t, src, &config.Options{BoolParam: true}))
}

func TestBoolDefaultNeverMatchesIntParam(t *testing.T) {
	src := `def foo(flag=True, n=1):
    pass
`
	want := `def foo(flag=True, n: int=1):
    pass
`
	assert.Equal(t, want, rewrite(t, src, &config.Options{IntParam: true}))
}

func TestParamRulesSkipSelfAndCls(t *testing.T) {
	src := `class C:
    def m(self, flag=True):
        pass

    @classmethod
    def c(cls, n=1):
        pass
`
	got := rewrite(t, src, &config.Options{BoolParam: true, IntParam: true, GuessCommonNames: true})
	assert.Contains(t, got, "def m(self, flag: bool=True):")
	assert.Contains(t, got, "def c(cls, n: int=1):")
	assert.NotContains(t, got, "self:")
	assert.NotContains(t, got, "cls:")
}

func TestAnnotateOptional(t *testing.T) {
	src := `def foo(uid=None, qid=None):
    pass

def bar(uid):
    pass
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:my_types.Uid"),
	}
	got := rewrite(t, src, opts)
	assert.Contains(t, got, "def foo(uid: Optional[Uid]=None, qid=None):")
	assert.Contains(t, got, "def bar(uid):")
	assert.Contains(t, got, "from my_types import Uid")
	assert.Contains(t, got, "from typing import Optional")
}

func TestAnnotateOptionalExistingImportNotDuplicated(t *testing.T) {
	src := `from my_types import Uid
from typing import Optional

def foo(uid=None):
    pass
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:my_types.Uid"),
	}
	got := rewrite(t, src, opts)
	assert.Equal(t, 1, strings.Count(got, "from my_types import Uid"))
	assert.Equal(t, 1, strings.Count(got, "from typing import Optional"))
	assert.Contains(t, got, "def foo(uid: Optional[Uid]=None):")
}

func TestImportMergedIntoExistingStatement(t *testing.T) {
	src := `from typing import List

def foo(uid=None):
    pass
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:typing.Any"),
	}
	got := rewrite(t, src, opts)
	assert.Contains(t, got, "from typing import List, Any, Optional")
	assert.Equal(t, 1, strings.Count(got, "from typing import"))
}

func TestAnnotateNamedParam(t *testing.T) {
	src := `def foo(uid, qid):
    pass

def bar(uid=1):
    pass
`
	opts := &config.Options{
		AnnotateNamedParams: mustParams(t, "uid:my_types.Uid"),
	}
	got := rewrite(t, src, opts)
	assert.Contains(t, got, "def foo(uid: Uid, qid):")
	assert.Contains(t, got, "def bar(uid=1):")
	assert.Contains(t, got, "from my_types import Uid")
	assert.NotContains(t, got, "Optional")
}

func TestAnnotateMagics(t *testing.T) {
	src := `class C:
    def __str__(self):
        return self.compute()

    def __not_str__(self):
        pass
`
	got := rewrite(t, src, &config.Options{AnnotateMagics: true})
	// The name match wins even though the body returns a non-literal.
	assert.Contains(t, got, "def __str__(self) -> str:")
	assert.Contains(t, got, "def __not_str__(self):")
}

func TestAnnotateMagicsLen(t *testing.T) {
	src := `class C:
    def __len__(self):
        return compute_length(self)
`
	got := rewrite(t, src, &config.Options{AnnotateMagics: true})
	assert.Contains(t, got, "def __len__(self) -> int:")
}

func TestAnnotateImpreciseMagics(t *testing.T) {
	src := `class C:
    def __iter__(self):
        pass

    def __not_iter__(self):
        pass
`
	got := rewrite(t, src, &config.Options{AnnotateImpreciseMagics: true})
	assert.Contains(t, got, "from typing import Iterator")
	assert.Contains(t, got, "def __iter__(self) -> Iterator:")
	assert.Contains(t, got, "def __not_iter__(self):")
}

func TestAnnotateExit(t *testing.T) {
	src := `class C:
    def __exit__(self, typ, value, tb):
        pass
`
	got := rewrite(t, src, &config.Options{AnnotateMagics: true})
	assert.Contains(t, got, "typ: Optional[Type[BaseException]]")
	assert.Contains(t, got, "value: Optional[BaseException]")
	assert.Contains(t, got, "tb: Optional[TracebackType]")
	assert.Contains(t, got, "def __exit__(self, ") // untouched self
	assert.Contains(t, got, ") -> None:")
	assert.Contains(t, got, "from types import TracebackType")
	assert.Contains(t, got, "from typing import Optional, Type")
}

func TestAnnotateExitWrongArity(t *testing.T) {
	src := `class C:
    def __exit__(self, *args):
        pass
`
	got := rewrite(t, src, &config.Options{AnnotateMagics: true})
	assert.NotContains(t, got, "BaseException")
	assert.Contains(t, got, ") -> None:")
}

func TestGuessCommonNames(t *testing.T) {
	src := `def configure(verbose, port, temperature, hostname, widths):
    pass
`
	got := rewrite(t, src, &config.Options{GuessCommonNames: true})
	assert.Contains(t, got, "verbose: bool")
	assert.Contains(t, got, "port: int")
	assert.Contains(t, got, "temperature: float")
	assert.Contains(t, got, "hostname: str")
	assert.Contains(t, got, "widths: Sequence[int]")
	assert.Contains(t, got, "from typing import Sequence")
}

func TestExistingAnnotationsNeverTouched(t *testing.T) {
	src := `def f(x: int = 0, y: str = "") -> bool:
    return True
`
	opts := &config.Options{}
	opts.ApplyAggressive()
	opts.GuessCommonNames = true
	assert.Equal(t, src, rewrite(t, src, opts))
}

func TestIdempotence(t *testing.T) {
	src := `"""Module docstring."""

class C:
    def __iter__(self):
        pass

def foo(flag=False, uid=None):
    pass

def bar():
    return 1
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:my_types.Uid"),
		GuessCommonNames:  true,
	}
	opts.ApplyAggressive()

	once := rewrite(t, src, opts)
	twice := rewrite(t, once, opts)
	assert.Equal(t, once, twice)
}

func TestImportsGoAfterDocstringAndFuture(t *testing.T) {
	src := `"""Docs."""
from __future__ import annotations

def foo(uid=None):
    pass
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:my_types.Uid"),
	}
	got := rewrite(t, src, opts)
	futureIdx := strings.Index(got, "from __future__")
	uidIdx := strings.Index(got, "from my_types import Uid")
	require.Greater(t, uidIdx, futureIdx)
	assert.Contains(t, got, "uid: Optional[Uid]=None")
}

func TestImportsGoAfterLeadingComments(t *testing.T) {
	src := `#!/usr/bin/env python
# -*- coding: utf-8 -*-

def foo(uid=None):
    pass
`
	opts := &config.Options{
		AnnotateOptionals: mustParams(t, "uid:my_types.Uid"),
	}
	got := rewrite(t, src, opts)
	assert.True(t, strings.HasPrefix(got, "#!/usr/bin/env python\n"), "shebang must stay on line 1:\n%s", got)
	codingIdx := strings.Index(got, "# -*- coding")
	uidIdx := strings.Index(got, "from my_types import Uid")
	require.Greater(t, uidIdx, codingIdx)
}

func TestSuggestionsApplied(t *testing.T) {
	src := `def f(x):
    return g(x)
`
	suggestions := &Suggestions{byLoc: map[suggestionKey]Suggestion{
		{"test.py", 1, 0}: {Type: "int", Imports: nil},
		{"test.py", 1, 6}: {Type: "Mapping[str, int]", Imports: []string{"typing.Mapping"}},
	}}
	got := rewriteFile(t, "test.py", src, &config.Options{}, suggestions)
	assert.Contains(t, got, "def f(x: Mapping[str, int]) -> int:")
	assert.Contains(t, got, "from typing import Mapping")
}

func TestSuggestionsOnlyWithoutImports(t *testing.T) {
	src := `def f(x):
    return g(x)
`
	suggestions := &Suggestions{byLoc: map[suggestionKey]Suggestion{
		{"test.py", 1, 0}: {Type: "int", Imports: nil},
		{"test.py", 1, 6}: {Type: "Mapping[str, int]", Imports: []string{"typing.Mapping"}},
	}}
	got := rewriteFile(t, "test.py", src, &config.Options{OnlyWithoutImports: true}, suggestions)
	assert.Contains(t, got, "def f(x) -> int:")
	assert.NotContains(t, got, "Mapping")
}

func TestLambdaParamsUntouched(t *testing.T) {
	src := `handler = lambda flag=True: flag
`
	opts := &config.Options{}
	opts.ApplyAggressive()
	assert.Equal(t, src, rewrite(t, src, opts))
}

func mustParams(t *testing.T, inputs ...string) []config.NamedParam {
	t.Helper()
	params, err := config.ParseNamedParams(inputs)
	require.NoError(t, err)
	return params
}
