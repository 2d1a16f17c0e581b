package marketing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"geoagent/internal/logger"
)

// File is an uploaded document held in memory
type File struct {
	Name string
	Data []byte
}

// Document is the extracted text of one file, or one page of a PDF
type Document struct {
	Source string
	Page   int
	Text   string
}

// LoadDocuments extracts text from every supported file. Unsupported types
// are skipped with a warning, a supported file that fails to parse is an error.
func LoadDocuments(files []File) ([]Document, error) {
	var docs []Document
	for _, f := range files {
		var (
			loaded []Document
			err    error
		)

		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".pdf":
			loaded, err = loadPDF(f)
		case ".txt", ".md":
			loaded = []Document{{Source: f.Name, Text: string(f.Data)}}
		case ".html", ".htm":
			loaded, err = loadHTML(f)
		default:
			logger.Warnf("Skipping %s - not a PDF, TXT or HTML file", f.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f.Name, err)
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func loadPDF(f File) ([]Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return nil, err
	}

	var docs []Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		docs = append(docs, Document{Source: f.Name, Page: i, Text: text})
	}
	return docs, nil
}

func loadHTML(f File) ([]Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(f.Data))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()
	// Block boundaries become line breaks, inline elements stay on their line
	doc.Find("p, div, br, li, tr, h1, h2, h3, h4, h5, h6, section, article").AfterHtml("\n")

	var blocks []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		for _, line := range strings.Split(s.Text(), "\n") {
			if line = strings.Join(strings.Fields(line), " "); line != "" {
				blocks = append(blocks, line)
			}
		}
	})
	return []Document{{Source: f.Name, Text: strings.Join(blocks, "\n")}}, nil
}
