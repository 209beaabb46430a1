package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html"
)

// ErrNoExtractableText is returned for PDFs without a text layer.
var ErrNoExtractableText = errors.New("CV PDF text could not be extracted, export a text-based PDF")

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>`)
	tabTag       = regexp.MustCompile(`<w:tab\s*/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// ReadCV returns the trimmed text of a CV file. PDF and DOCX files are
// converted, anything else is read as UTF-8 text with invalid bytes dropped.
func ReadCV(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("CV file %q not found: %w", path, err)
		}
		return "", fmt.Errorf("stat CV file %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("CV path %q is a directory", path)
	}

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoExtractableText
		}
	case ".docx":
		text, err = readDocx(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		text = strings.ToValidUTF8(string(data), "")
	}
	if err != nil {
		return "", fmt.Errorf("read CV %q: %w", path, err)
	}

	return strings.TrimSpace(text), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

func readDocx(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return docxText(doc.Editable().GetContent()), nil
}

// docxText turns WordprocessingML into plain text, one paragraph per line.
func docxText(markup string) string {
	text := paragraphEnd.ReplaceAllString(markup, "\n")
	text = tabTag.ReplaceAllString(text, " ")
	text = xmlTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return collapse(text)
}
