package table

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestCleanReader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"with BOM", "\xEF\xBB\xBFhello,world", "hello,world"},
		{"without BOM", "hello,world", "hello,world"},
		{"empty", "", ""},
		{"only BOM", "\xEF\xBB\xBF", ""},
		{"partial BOM is invalid UTF-8", "\xEF\xBBabc", "??abc"},
		{"multibyte kept", "Zürich,東京", "Zürich,東京"},
		{"invalid byte replaced", "he\x80lo", "he?lo"},
		{"truncated rune at end", "ab\xE6\x97", "ab??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(cleanReader(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCleanReader_TinyReads(t *testing.T) {
	// One-byte reads force multibyte runes to be split across calls.
	r := iotest.OneByteReader(cleanReader(strings.NewReader("a,東京\x80,ü")))

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "a,東京?,ü" {
		t.Errorf("got %q, want %q", got, "a,東京?,ü")
	}
}

func TestCleanReader_KeepsSourceError(t *testing.T) {
	// The source fails once after its data; the failure must not be lost.
	r := cleanReader(iotest.TimeoutReader(strings.NewReader("abcdef")))

	got, err := io.ReadAll(r)
	if err != iotest.ErrTimeout {
		t.Fatalf("err = %v, want %v", err, iotest.ErrTimeout)
	}
	if string(got) != "abcdef" {
		t.Errorf("got %q, want %q", got, "abcdef")
	}
}
