package ocr

import (
	"context"
	"testing"
)

func TestNewMissingBinary(t *testing.T) {
	if New("") != nil {
		t.Fatal("empty command must disable extraction")
	}
	if New("definitely-not-a-real-binary-xyz") != nil {
		t.Fatal("unresolvable command must disable extraction")
	}
}

func TestExtractNilExtractor(t *testing.T) {
	var e *Extractor
	if got := e.Extract(context.Background(), "/tmp/whatever.jpg"); got != "" {
		t.Fatalf("nil extractor must return empty, got %q", got)
	}
}

func TestSerialPattern(t *testing.T) {
	cases := map[string]string{
		"SERIAL: SN1234ABCD": "SN1234ABCD",
		"s/n: G7X-55012-KQ":  "G7X-55012-KQ",
		"короткий AB12":      "",
		"short ab":           "",
	}
	for in, want := range cases {
		got := serialRe.FindString(compactUpper(in))
		if got != want {
			t.Fatalf("serial from %q = %q, want %q", in, got, want)
		}
	}
}
