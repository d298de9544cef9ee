package stats

import "testing"

func TestRenderTableAlignsColumns(t *testing.T) {
	cols := []column{{title: "Subject"}, {title: "Sessions", right: true}, {title: "Time", right: true}}
	rows := [][]string{
		{"Maths", "12", "3h 20m"},
		{"Irish", "3", "45m"},
		{"Béarla"},
	}

	lines := renderTable(cols, rows)
	want := []string{
		"Subject Sessions   Time",
		"Maths         12 3h 20m",
		"Irish          3    45m",
		"Béarla                 ",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if lines := renderTable(nil, [][]string{{"x"}}); lines != nil {
		t.Fatalf("expected no lines, got %q", lines)
	}
}
