package markdown

import (
	"reflect"
	"testing"
)

func TestHeadingsSkipsFencedCode(t *testing.T) {
	doc := "# Memory\n\n## Lessons\n- one\n\n```sh\n# not a heading\n```\n\n### Details\ntext\n"
	got := Headings(doc)
	want := []Heading{
		{Level: 1, Text: "Memory", Line: 0},
		{Level: 2, Text: "Lessons", Line: 2},
		{Level: 3, Text: "Details", Line: 9},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Headings = %+v, want %+v", got, want)
	}
}

func TestHeadingsCyrillic(t *testing.T) {
	got := Headings("# Пам'ять\n\n## Уроки\n- урок\n")
	if len(got) != 2 || got[1].Text != "Уроки" || got[1].Level != 2 {
		t.Fatalf("Headings = %+v", got)
	}
}

func TestParseHeadingLine(t *testing.T) {
	tests := []struct {
		line  string
		ok    bool
		level int
		text  string
	}{
		{"# Title", true, 1, "Title"},
		{"###   Spaced  ", true, 3, "Spaced"},
		{"## Closed ##", true, 2, "Closed"},
		{"   # Indented", true, 1, "Indented"},
		{"#", true, 1, ""},
		{"#hashtag", false, 0, ""},
		{"####### seven", false, 0, ""},
		{"    # code", false, 0, ""},
		{"plain text", false, 0, ""},
	}
	for _, tt := range tests {
		h, ok := ParseHeadingLine(tt.line)
		if ok != tt.ok {
			t.Errorf("ParseHeadingLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if ok && (h.Level != tt.level || h.Text != tt.text) {
			t.Errorf("ParseHeadingLine(%q) = %+v, want level %d text %q", tt.line, h, tt.level, tt.text)
		}
	}
}
