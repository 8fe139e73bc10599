package crawl

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeText converts a raw text-like file body to normalized plain text:
// HTML is stripped to its visible text, everything else gets line-ending
// normalization.
func NormalizeText(fileName string, raw []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".html" || ext == ".htm" {
		return htmlToText(raw)
	}
	return normalizeLineEndings(string(raw)), nil
}

func htmlToText(raw []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})
	text := b.String()
	if text == "" {
		text = doc.Text()
	}
	return dropBlankLines(normalizeLineEndings(text)), nil
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// dropBlankLines trims each line and removes blank lines entirely, leaving
// one stripped line per text run.
func dropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
