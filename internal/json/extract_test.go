package json

import (
	"strings"
	"testing"
	"unicode/utf8"
)

type step struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	IsSystem bool   `json:"isSystem"`
}

func TestArrayWithCommentary(t *testing.T) {
	response := `Here are the steps:
[{"id": 1, "title": "Load [config]", "isSystem": true}, {"id": 2, "title": "Open app", "isSystem": false}]
Let me know if you need more.`
	steps, err := ExtractArrayFromResponse[step](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Title != "Load [config]" || !steps[0].IsSystem {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[1].IsSystem {
		t.Errorf("expected second step to be a user step")
	}
}

func TestArrayInCodeFence(t *testing.T) {
	response := "```json\n[{\"id\": 1, \"title\": \"a\", \"isSystem\": false}]\n```"
	steps, err := ExtractArrayFromResponse[step](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 {
		t.Errorf("expected 1 step, got %d", len(steps))
	}
}

func TestArrayFirstOfMany(t *testing.T) {
	raw, err := extractArray(`first [1, 2] then [3]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "[1, 2]" {
		t.Errorf("expected first array, got %q", raw)
	}
}

func TestNoArray(t *testing.T) {
	_, err := ExtractArrayFromResponse[step]("no structured data here")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestBrokenArray(t *testing.T) {
	_, err := ExtractArrayFromResponse[step](`[{"id": 1, "title": }]`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPreviewCutsOnRuneBoundary(t *testing.T) {
	response := strings.Repeat("é", 150)
	got := preview(response)
	if !utf8.ValidString(got) {
		t.Fatalf("preview produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 100) + "..."; got != want {
		t.Errorf("expected 100 runes and an ellipsis, got %d runes", utf8.RuneCountInString(got))
	}
	if short := "ünïcode"; preview(short) != short {
		t.Errorf("short response should be returned unchanged")
	}
}

func TestNoArrayErrorIsValidUTF8(t *testing.T) {
	_, err := ExtractArrayFromResponse[step](strings.Repeat("日本", 80))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !utf8.ValidString(err.Error()) {
		t.Errorf("error message is not valid UTF-8: %q", err.Error())
	}
}
