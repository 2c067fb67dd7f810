// Package ocr extracts serial-number text from proof photos by shelling
// out to the tesseract binary. Extraction is best-effort: every failure
// collapses to an empty result and must never block order completion.
package ocr

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

var serialRe = regexp.MustCompile(`[A-Z0-9\-]{8,}`)

// compactUpper folds recognized text into the form serials are matched
// in: uppercase, spaces removed so OCR-split tokens rejoin.
func compactUpper(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

// Extractor runs tesseract over image files.
type Extractor struct {
	cmd string
}

// New returns an Extractor using the given tesseract command. When cmd is
// empty or not installed it returns nil, which callers treat as
// "extraction disabled".
func New(cmd string) *Extractor {
	if cmd == "" {
		return nil
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return nil
	}
	return &Extractor{cmd: cmd}
}

// Extract returns the most serial-looking token of the recognized text:
// the first run of eight or more uppercase alphanumerics, else the first
// non-empty line. An unreadable image yields "".
func (e *Extractor) Extract(ctx context.Context, imagePath string) string {
	if e == nil {
		return ""
	}

	out, err := exec.CommandContext(ctx, e.cmd, imagePath, "stdout", "-l", "eng").Output()
	if err != nil {
		return ""
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return ""
	}

	if m := serialRe.FindString(compactUpper(raw)); m != "" {
		return m
	}
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
