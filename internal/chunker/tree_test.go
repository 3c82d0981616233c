package chunker

import (
	"reflect"
	"testing"
)

func TestBuildSectionTreeHierarchy(t *testing.T) {
	markdown := "# Intro\n\nShort para.\n\n## GDP\n\nTable text.\n\n# Second\n\nTail.\n"

	root := BuildSectionTree(markdown)
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	intro := root.Children[0]
	if intro.Title != "Intro" || intro.Level != 1 {
		t.Errorf("first section = %q level %d", intro.Title, intro.Level)
	}
	if !reflect.DeepEqual(intro.Blocks, []string{"# Intro", "Short para."}) {
		t.Errorf("intro blocks = %v", intro.Blocks)
	}
	if len(intro.Children) != 1 {
		t.Fatalf("intro has %d children, want 1", len(intro.Children))
	}

	gdp := intro.Children[0]
	if gdp.Title != "GDP" || gdp.Level != 2 {
		t.Errorf("nested section = %q level %d", gdp.Title, gdp.Level)
	}
	if !reflect.DeepEqual(gdp.Blocks, []string{"## GDP", "Table text."}) {
		t.Errorf("gdp blocks = %v", gdp.Blocks)
	}

	second := root.Children[1]
	if second.Title != "Second" || second.Level != 1 || len(second.Children) != 0 {
		t.Errorf("second section = %+v", second)
	}
}

func TestBuildSectionTreeLevelSkips(t *testing.T) {
	// An h3 directly under an h1 nests under it; a later h2 closes the h3.
	markdown := "# Top\n\n### Deep\n\nDeep text.\n\n## Mid\n\nMid text.\n"

	root := BuildSectionTree(markdown)
	top := root.Children[0]
	if len(top.Children) != 2 {
		t.Fatalf("top has %d children, want 2", len(top.Children))
	}
	if top.Children[0].Title != "Deep" || top.Children[0].Level != 3 {
		t.Errorf("first child = %+v", top.Children[0])
	}
	if top.Children[1].Title != "Mid" || top.Children[1].Level != 2 {
		t.Errorf("second child = %+v", top.Children[1])
	}
}

func TestBuildSectionTreeNoHeaders(t *testing.T) {
	root := BuildSectionTree("Just text.\n\nMore text.\n")

	if len(root.Children) != 0 {
		t.Fatalf("headerless doc grew children: %+v", root.Children)
	}
	if !reflect.DeepEqual(root.Blocks, []string{"Just text.", "More text."}) {
		t.Errorf("root blocks = %v", root.Blocks)
	}
}

func TestBuildSectionTreeKeepsBlockMarkers(t *testing.T) {
	markdown := "# A\n\n- one\n- two\n\n> quoted line\n\npara\n"

	root := BuildSectionTree(markdown)
	a := root.Children[0]
	want := []string{"# A", "- one\n- two", "> quoted line", "para"}
	if !reflect.DeepEqual(a.Blocks, want) {
		t.Errorf("blocks = %q, want %q", a.Blocks, want)
	}
}

func TestBuildSectionTreeTokenParagraph(t *testing.T) {
	ph := "**[<<TABLE: TBL_1 | GDP Data>>]**"
	root := BuildSectionTree("## GDP\n\n" + ph + "\n\nAfter.\n")

	gdp := root.Children[0]
	if !reflect.DeepEqual(gdp.Blocks, []string{"## GDP", ph, "After."}) {
		t.Errorf("blocks = %q", gdp.Blocks)
	}
}
