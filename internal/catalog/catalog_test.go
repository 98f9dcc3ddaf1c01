package catalog

import "testing"

func TestNextStepWalksSequence(t *testing.T) {
	cat := New(map[string][]Step{
		"Demo": {{Name: "A"}, {Name: "B"}, {Name: "C"}},
	})

	next, ok := cat.NextStep("Demo", "A")
	if !ok || next != "B" {
		t.Fatalf("NextStep(A) = %q, %v; want B, true", next, ok)
	}
	next, ok = cat.NextStep("Demo", "B")
	if !ok || next != "C" {
		t.Fatalf("NextStep(B) = %q, %v; want C, true", next, ok)
	}
	if _, ok := cat.NextStep("Demo", "C"); ok {
		t.Fatal("last step must have no successor")
	}
	if _, ok := cat.NextStep("Demo", "missing"); ok {
		t.Fatal("unknown step must have no successor")
	}
	if _, ok := cat.NextStep("Nope", "A"); ok {
		t.Fatal("unknown workflow must have no successor")
	}
}

func TestDefaultCatalogSequences(t *testing.T) {
	cat := Default()

	types := cat.WorkflowTypes()
	want := []string{"Coloring Book", "POD Shirt", "SVG Design"}
	if len(types) != len(want) {
		t.Fatalf("unexpected workflow types: %v", types)
	}
	for i, name := range want {
		if types[i] != name {
			t.Fatalf("workflow types = %v, want %v", types, want)
		}
	}

	first, ok := cat.FirstStep("SVG Design")
	if !ok || first != "Download Image" {
		t.Fatalf("FirstStep(SVG Design) = %q, %v", first, ok)
	}
	next, ok := cat.NextStep("SVG Design", "Upload Files")
	if !ok || next != "Create JSON" {
		t.Fatalf("NextStep(SVG Design, Upload Files) = %q, %v", next, ok)
	}
	if _, ok := cat.NextStep("SVG Design", "Create JSON"); ok {
		t.Fatal("Create JSON is the final SVG Design step")
	}

	if !cat.HasStep("Coloring Book", "Create PDF") {
		t.Fatal("expected Create PDF in Coloring Book")
	}
	if cat.HasStep("SVG Design", "Create PDF") {
		t.Fatal("Create PDF must not appear in SVG Design")
	}
}

func TestNewTrimsAndDropsEmptySteps(t *testing.T) {
	cat := New(map[string][]Step{
		" Demo ": {{Name: " A "}, {Name: "   "}, {Name: "B"}},
		"":       {{Name: "ignored"}},
	})

	if !cat.Known("Demo") {
		t.Fatal("expected trimmed workflow type to be known")
	}
	steps := cat.StepsFor("Demo")
	if len(steps) != 2 || steps[0] != "A" || steps[1] != "B" {
		t.Fatalf("unexpected steps: %v", steps)
	}
	if cat.Known("") {
		t.Fatal("empty workflow type must be dropped")
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"POD Shirt":      "Pod Shirt",
		"svg_design":     "Svg Design",
		"create-json":    "Create Json",
		"  upload.files": "Upload Files",
		"":               "Unknown",
	}
	for input, want := range cases {
		if got := DisplayLabel(input); got != want {
			t.Fatalf("DisplayLabel(%q) = %q, want %q", input, got, want)
		}
	}
}
