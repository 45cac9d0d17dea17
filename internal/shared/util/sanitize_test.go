package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " report.pdf ", want: "report.pdf"},
		{in: "a/b\\c.png", want: "a_b_c.png"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "inv\x00oice\t.pdf", want: "invoice.pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 200) + ".docx")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) > MaxFileNameBytes || !strings.HasSuffix(got, ".docx") {
		t.Fatalf("unexpected result %q (%d bytes)", got, len(got))
	}
}
