package keyboard

import "testing"

func TestMenuKeepsOrder(t *testing.T) {
	options := []string{"Good Company", "Blue Door", "Cafe 3", "Cafe 4", "Cafe 5"}
	markup := Menu(options, 2)
	if !markup.ResizeKeyboard || !markup.OneTimeKeyboard {
		t.Fatal("expected resize + one-time keyboard")
	}
	if len(markup.ReplyKeyboard) != 3 {
		t.Fatalf("rows = %d, want 3", len(markup.ReplyKeyboard))
	}
	got := Labels(markup)
	if len(got) != len(options) {
		t.Fatalf("labels = %v", got)
	}
	for i := range options {
		if got[i] != options[i] {
			t.Fatalf("label %d = %q, want %q", i, got[i], options[i])
		}
	}
}

func TestChunkLabelsSinglePerRow(t *testing.T) {
	rows := ChunkLabels([]string{"a", "b", "c"}, 0)
	if len(rows) != 3 || len(rows[2]) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if rows := ChunkLabels(nil, 3); len(rows) != 0 {
		t.Fatalf("rows for empty input = %v", rows)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	if !RemoveKeyboard().RemoveKeyboard {
		t.Fatal("expected RemoveKeyboard flag")
	}
}
