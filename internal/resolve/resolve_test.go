package resolve

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/folio-sh/folio/internal/types"
)

func prompt(id, name string, version int, extends string, sections ...types.Section) types.Prompt {
	return types.Prompt{
		ID:       id,
		Name:     name,
		Version:  version,
		Extends:  extends,
		Sections: sections,
	}
}

func sec(name, body string) types.Section {
	return types.Section{Name: name, Body: body}
}

func TestResolve_SingleRecord(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "base", 1, "", sec("intro", "hello"), sec("task", "do it"), sec("unused", "")),
	}

	got, err := Resolve("base", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{sec("intro", "hello"), sec("task", "do it")}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
	if !reflect.DeepEqual(got.ResolvedFrom, []string{"base"}) {
		t.Errorf("resolvedFrom = %v, want [base]", got.ResolvedFrom)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
}

func TestResolve_OverrideKeepsParentPosition(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "base", 1, "", sec("intro", "hi"), sec("style", "formal"), sec("closing", "bye")),
		prompt("p2", "child", 1, "base", sec("style", "casual")),
	}

	got, err := Resolve("child", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{sec("intro", "hi"), sec("style", "casual"), sec("closing", "bye")}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
}

func TestResolve_AppendsNewSectionsInChildOrder(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "base", 1, "", sec("intro", "hi")),
		prompt("p2", "child", 1, "base", sec("task", "write"), sec("examples", "one")),
	}

	got, err := Resolve("child", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{sec("intro", "hi"), sec("task", "write"), sec("examples", "one")}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
}

func TestResolve_EmptyBodyRemovesParentSection(t *testing.T) {
	t.Run("removes inherited section", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "base", 1, "", sec("intro", "hi"), sec("legal", "boilerplate")),
			prompt("p2", "child", 1, "base", sec("legal", "")),
		}
		got, err := Resolve("child", prompts)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := []types.Section{sec("intro", "hi")}
		if !reflect.DeepEqual(got.Sections, want) {
			t.Errorf("sections = %v, want %v", got.Sections, want)
		}
	})

	t.Run("removal of absent section is a no-op", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "base", 1, "", sec("intro", "hi")),
			prompt("p2", "child", 1, "base", sec("ghost", "")),
		}
		got, err := Resolve("child", prompts)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := []types.Section{sec("intro", "hi")}
		if !reflect.DeepEqual(got.Sections, want) {
			t.Errorf("sections = %v, want %v", got.Sections, want)
		}
	})
}

func TestResolve_ChainMergesRootFirst(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "org", 1, "", sec("tone", "neutral"), sec("legal", "keep")),
		prompt("p2", "team", 1, "org", sec("tone", "friendly"), sec("workflow", "review first")),
		prompt("p3", "bot", 1, "team", sec("legal", ""), sec("greeting", "hey")),
	}

	got, err := Resolve("bot", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{
		sec("tone", "friendly"),
		sec("workflow", "review first"),
		sec("greeting", "hey"),
	}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
	wantFrom := []string{"org", "team", "bot"}
	if !reflect.DeepEqual(got.ResolvedFrom, wantFrom) {
		t.Errorf("resolvedFrom = %v, want %v", got.ResolvedFrom, wantFrom)
	}
}

func TestResolve_PicksHighestVersionByName(t *testing.T) {
	t.Run("same record across versions", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "base", 1, "", sec("msg", "old")),
			prompt("p1", "base", 2, "", sec("msg", "new")),
		}
		got, err := Resolve("base", prompts)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Version != 2 {
			t.Errorf("version = %d, want 2", got.Version)
		}
		if got.Sections[0].Body != "new" {
			t.Errorf("body = %q, want %q", got.Sections[0].Body, "new")
		}
	})

	t.Run("version tie keeps the later record", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "dup", 3, "", sec("msg", "first")),
			prompt("p2", "dup", 3, "", sec("msg", "second")),
		}
		got, err := Resolve("dup", prompts)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Sections[0].Body != "second" {
			t.Errorf("body = %q, want %q", got.Sections[0].Body, "second")
		}
	})
}

func TestResolve_RenamedPromptStopsAnsweringOldName(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "old-name", 1, "", sec("msg", "hi")),
		prompt("p1", "new-name", 2, "", sec("msg", "hi")),
	}

	if _, err := Resolve("old-name", prompts); err == nil {
		t.Fatal("Resolve(old-name) error = nil, want NotFoundError")
	}
	got, err := Resolve("new-name", prompts)
	if err != nil {
		t.Fatalf("Resolve(new-name) error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
}

func TestResolve_UnknownName(t *testing.T) {
	_, err := Resolve("nope", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Name != "nope" || nf.Version != 0 {
		t.Errorf("NotFoundError = %+v, want Name=nope Version=0", nf)
	}
}

func TestResolve_MissingParent(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "child", 1, "ghost", sec("msg", "hi")),
	}

	_, err := Resolve("child", prompts)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Name != "ghost" {
		t.Errorf("NotFoundError.Name = %q, want %q", nf.Name, "ghost")
	}
}

func TestResolve_DetectsCycles(t *testing.T) {
	t.Run("two-node cycle", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "a", 1, "b", sec("x", "1")),
			prompt("p2", "b", 1, "a", sec("y", "2")),
		}
		_, err := Resolve("a", prompts)
		var ce *CycleError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want *CycleError", err)
		}
		want := []string{"a", "b", "a"}
		if !reflect.DeepEqual(ce.Chain, want) {
			t.Errorf("chain = %v, want %v", ce.Chain, want)
		}
	})

	t.Run("self cycle", func(t *testing.T) {
		prompts := []types.Prompt{
			prompt("p1", "a", 1, "a", sec("x", "1")),
		}
		_, err := Resolve("a", prompts)
		var ce *CycleError
		if !errors.As(err, &ce) {
			t.Fatalf("error = %v, want *CycleError", err)
		}
		want := []string{"a", "a"}
		if !reflect.DeepEqual(ce.Chain, want) {
			t.Errorf("chain = %v, want %v", ce.Chain, want)
		}
	})
}

// linearChain builds n prompts named n1..n<n> where each extends the one
// before it.
func linearChain(n int) []types.Prompt {
	prompts := make([]types.Prompt, 0, n)
	for i := 1; i <= n; i++ {
		extends := ""
		if i > 1 {
			extends = fmt.Sprintf("n%d", i-1)
		}
		name := fmt.Sprintf("n%d", i)
		prompts = append(prompts, prompt(name, name, 1, extends, sec(name, "body")))
	}
	return prompts
}

func TestResolve_DepthLimit(t *testing.T) {
	t.Run("chain of seven fails", func(t *testing.T) {
		_, err := Resolve("n7", linearChain(7))
		var de *DepthError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want *DepthError", err)
		}
		if de.Limit != MaxDepth {
			t.Errorf("limit = %d, want %d", de.Limit, MaxDepth)
		}
	})

	t.Run("chain of exactly five succeeds", func(t *testing.T) {
		got, err := Resolve("n5", linearChain(5))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		wantFrom := []string{"n1", "n2", "n3", "n4", "n5"}
		if !reflect.DeepEqual(got.ResolvedFrom, wantFrom) {
			t.Errorf("resolvedFrom = %v, want %v", got.ResolvedFrom, wantFrom)
		}
		if len(got.Sections) != 5 {
			t.Errorf("len(sections) = %d, want 5", len(got.Sections))
		}
	})
}

func TestResolve_HonorsPin(t *testing.T) {
	pinned := prompt("p1", "greet", 2, "", sec("msg", "goodbye"))
	pinned.Pinned = 1
	prompts := []types.Prompt{
		prompt("p1", "greet", 1, "", sec("msg", "hello")),
		pinned,
	}

	got, err := Resolve("greet", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if got.Sections[0].Body != "hello" {
		t.Errorf("body = %q, want %q", got.Sections[0].Body, "hello")
	}
}

func TestResolve_PinnedVersionUsesItsOwnParentRef(t *testing.T) {
	pinned := prompt("p2", "greet", 2, "", sec("msg", "standalone"))
	pinned.Pinned = 1
	prompts := []types.Prompt{
		prompt("p1", "legacy", 1, "", sec("note", "from legacy")),
		prompt("p2", "greet", 1, "legacy", sec("msg", "hi")),
		pinned,
	}

	got, err := Resolve("greet", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{sec("note", "from legacy"), sec("msg", "hi")}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
	wantFrom := []string{"legacy", "greet"}
	if !reflect.DeepEqual(got.ResolvedFrom, wantFrom) {
		t.Errorf("resolvedFrom = %v, want %v", got.ResolvedFrom, wantFrom)
	}
}

func TestResolve_AncestorPinIgnored(t *testing.T) {
	base := prompt("p1", "base", 2, "", sec("tone", "casual"))
	base.Pinned = 1
	prompts := []types.Prompt{
		prompt("p1", "base", 1, "", sec("tone", "formal")),
		base,
		prompt("p2", "child", 1, "base", sec("task", "reply")),
	}

	got, err := Resolve("child", prompts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []types.Section{sec("tone", "casual"), sec("task", "reply")}
	if !reflect.DeepEqual(got.Sections, want) {
		t.Errorf("sections = %v, want %v", got.Sections, want)
	}
}

func TestResolve_PinnedVersionMissing(t *testing.T) {
	broken := prompt("p1", "greet", 2, "", sec("msg", "hi"))
	broken.Pinned = 5
	prompts := []types.Prompt{broken}

	_, err := Resolve("greet", prompts)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Name != "greet" || nf.Version != 5 {
		t.Errorf("NotFoundError = %+v, want Name=greet Version=5", nf)
	}
}

func TestResolveAt_OverridesPin(t *testing.T) {
	pinned := prompt("p1", "greet", 2, "", sec("msg", "goodbye"))
	pinned.Pinned = 1
	prompts := []types.Prompt{
		prompt("p1", "greet", 1, "", sec("msg", "hello")),
		pinned,
	}

	got, err := ResolveAt("greet", 2, prompts)
	if err != nil {
		t.Fatalf("ResolveAt() error = %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if got.Sections[0].Body != "goodbye" {
		t.Errorf("body = %q, want %q", got.Sections[0].Body, "goodbye")
	}
}

func TestResolveAt_FindsSupersededVersion(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "greet", 1, "", sec("msg", "one")),
		prompt("p1", "greet", 2, "", sec("msg", "two")),
		prompt("p1", "greet", 3, "", sec("msg", "three")),
	}

	got, err := ResolveAt("greet", 2, prompts)
	if err != nil {
		t.Fatalf("ResolveAt() error = %v", err)
	}
	if got.Sections[0].Body != "two" {
		t.Errorf("body = %q, want %q", got.Sections[0].Body, "two")
	}
}

func TestResolveAt_MissingVersion(t *testing.T) {
	prompts := []types.Prompt{
		prompt("p1", "greet", 1, "", sec("msg", "one")),
	}

	_, err := ResolveAt("greet", 9, prompts)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Name != "greet" || nf.Version != 9 {
		t.Errorf("NotFoundError = %+v, want Name=greet Version=9", nf)
	}
}
