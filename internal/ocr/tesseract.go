// Package ocr turns announcement screenshots into text lines
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEmptyImage is returned when no image bytes are supplied
var ErrEmptyImage = errors.New("empty image")

// TextExtractor reads text from an encoded image
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) ([]string, error)
}

// Tesseract runs the tesseract CLI, feeding the image on stdin
type Tesseract struct {
	binary   string
	language string
}

// NewTesseract creates a Tesseract extractor. An empty binary resolves "tesseract" on PATH
func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{binary: binary, language: language}
}

// ExtractText returns the non-blank lines tesseract recognised, trimmed
func (t *Tesseract) ExtractText(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w: %s", t.binary, err, strings.TrimSpace(stderr.String()))
	}
	return SplitLines(stdout.String()), nil
}

// SplitLines splits text into trimmed, non-blank lines
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
