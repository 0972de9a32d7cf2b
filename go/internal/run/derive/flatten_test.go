package derive

import (
	"slices"
	"testing"

	"github.com/mcdev12/tempo/go/internal/models"
)

func collect(tree models.Segment, limit int) []Leaf {
	var out []Leaf
	for leaf := range Leaves(tree) {
		out = append(out, leaf)
		if len(out) == limit {
			break
		}
	}
	return out
}

func TestLeavesGroupsTopLevelChildren(t *testing.T) {
	tree := seq("root",
		step("a"),
		seq("block", step("b"), note("c")),
		repeat("r", intPtr(2), step("d")),
	)
	leaves := collect(tree, 0)

	var groups []string
	for _, l := range leaves {
		groups = append(groups, l.GroupID)
	}
	want := []string{"top:0", "top:1", "top:1", "r#1", "r#2"}
	if !slices.Equal(groups, want) {
		t.Fatalf("expected groups %v, got %v", want, groups)
	}
	for i, l := range leaves {
		if l.Index != i {
			t.Fatalf("leaf %d has index %d", i, l.Index)
		}
	}
	if leaves[2].Runnable() {
		t.Fatalf("notes are never runnable")
	}
}

func TestLeavesStackCarriesRounds(t *testing.T) {
	tree := seq("root", repeat("outer", intPtr(2), repeat("inner", nil, step("x"))))
	leaves := collect(tree, 3)

	third := leaves[2]
	if len(third.Stack) != 3 {
		t.Fatalf("expected root, outer, inner frames, got %+v", third.Stack)
	}
	outer, inner := third.Stack[1], third.Stack[2]
	if outer.Round != 1 || outer.Rounds == nil || *outer.Rounds != 2 {
		t.Fatalf("unexpected outer frame: %+v", outer)
	}
	if inner.Round != 3 || inner.Rounds != nil {
		t.Fatalf("unexpected inner frame: %+v", inner)
	}
	if leaves[0].Stack[2].Round != 1 {
		t.Fatalf("earlier leaves must keep their own frames, got %+v", leaves[0].Stack)
	}
}

func TestLeavesOfLeafRoot(t *testing.T) {
	leaves := collect(countup("solo"), 0)
	if len(leaves) != 1 || leaves[0].GroupID != "top:0" || len(leaves[0].Stack) != 0 {
		t.Fatalf("unexpected leaves: %+v", leaves)
	}
}

func TestOpenEndedRepeatWithoutRunnableLeavesTerminates(t *testing.T) {
	tree := seq("root", repeat("r", nil, note("n")), step("after"))
	leaves := collect(tree, 0)
	if len(leaves) != 1 || leaves[0].Segment.BlockID != "after" {
		t.Fatalf("expected only the step after the repeat, got %+v", leaves)
	}
}

func TestTrailingRestElidedInFinalRoundOnly(t *testing.T) {
	body := seq("round", countdown("w", models.WorkLabel, 1000), step("burpees"), countdown("r", models.RestLabel, 500))
	tree := seq("root", repeat("iv", intPtr(3), body))

	var elided []string
	for leaf := range Leaves(tree) {
		if leaf.Elided {
			elided = append(elided, leaf.GroupID)
		}
	}
	if !slices.Equal(elided, []string{"iv#3"}) {
		t.Fatalf("expected only the final rest to be elided, got %v", elided)
	}
}

func TestTrailingRestRequiresWorkFirst(t *testing.T) {
	cases := map[string]models.Segment{
		"rest first": repeat("iv", intPtr(1), seq("round",
			countdown("r", models.RestLabel, 500), countdown("w", models.WorkLabel, 1000))),
		"no work": repeat("iv", intPtr(1), seq("round",
			step("x"), countdown("r", models.RestLabel, 500))),
		"work only nested": repeat("iv", intPtr(1),
			repeat("inner", intPtr(1), countdown("w", models.WorkLabel, 1000)),
			countdown("r", models.RestLabel, 500)),
		"runnable after rest": repeat("iv", intPtr(1),
			countdown("w", models.WorkLabel, 1000),
			countdown("r", models.RestLabel, 500),
			repeat("inner", intPtr(1), step("x"))),
	}
	for name, rep := range cases {
		if id := trailingRest(rep); id != "" {
			t.Fatalf("%s: expected no elision, got %q", name, id)
		}
	}

	ok := repeat("iv", intPtr(1),
		countdown("w", models.WorkLabel, 1000),
		note("breathe"),
		countdown("r", models.RestLabel, 500))
	if id := trailingRest(ok); id != "r" {
		t.Fatalf("expected rest to be elided past a trailing note, got %q", id)
	}
}

func TestNestedRepeatFinalRoundElidesInsideOuterRounds(t *testing.T) {
	inner := repeat("inner", intPtr(2), seq("round",
		countdown("w", models.WorkLabel, 1000), countdown("r", models.RestLabel, 500)))
	tree := seq("root", repeat("outer", intPtr(2), inner, step("shake out")))

	elided := 0
	for leaf := range Leaves(tree) {
		if leaf.Elided {
			elided++
			if leaf.Stack[2].Round != 2 {
				t.Fatalf("expected elision in the inner final round, got %+v", leaf.Stack)
			}
		}
	}
	if elided != 2 {
		t.Fatalf("expected one elided rest per outer round, got %d", elided)
	}
}
