package extract

import "testing"

func TestVisibleText(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><title>Report</title><style>p { color: green; }</style></head>
<body>
  <script>var eco = "friendly";</script>
  <h1>Climate   Transition</h1>
  <p>We reduced <b>scope 1</b> emissions by 12%.</p>
  <!-- hidden -->
  <ul><li>Water</li><li>Waste</li></ul>
</body></html>`

	got, err := VisibleText(doc)
	if err != nil {
		t.Fatalf("VisibleText() error = %v", err)
	}

	want := "Climate Transition\n\nWe reduced scope 1 emissions by 12%.\n\nWater\n\nWaste"
	if got != want {
		t.Errorf("VisibleText() = %q, want %q", got, want)
	}
}

func TestTextPassthrough(t *testing.T) {
	in := "Plain <b>text</b> stays as is."
	got, err := Text("report.txt", in)
	if err != nil {
		t.Fatal(err)
	}
	if got != in {
		t.Errorf("Text() = %q, want passthrough", got)
	}
}

func TestTextNormalizes(t *testing.T) {
	got, err := Text("report.md", "ﬁrst\u0007 CO₂ ＡＢＣ")
	if err != nil {
		t.Fatal(err)
	}
	if got != "first CO2 ABC" {
		t.Errorf("Text() = %q", got)
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"a.html":  true,
		"b.HTM":   true,
		"c.txt":   false,
		"d":       false,
		"e.xhtml": true,
	}
	for name, want := range tests {
		if got := IsHTML(name); got != want {
			t.Errorf("IsHTML(%q) = %v, want %v", name, got, want)
		}
	}
}
