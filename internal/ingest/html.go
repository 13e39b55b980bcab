package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var metaCharset = regexp.MustCompile(`(?i)charset\s*=\s*["']?([a-zA-Z0-9_\-]+)`)

// HTMLReader reads spreadsheet exports that are really HTML tables saved
// with an .xls extension. The first <table> becomes the grid.
type HTMLReader struct{}

// Read implements Reader
func (HTMLReader) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !bytes.Contains(bytes.ToLower(raw[:min(len(raw), 64*1024)]), []byte("<table")) {
		return nil, errors.New("not an HTML table document")
	}

	text, err := decodeHTML(raw, s.Encoding)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("no table element found")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, cells)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := newGrid(rows, s.HeaderMode)
	if !g.HasData() {
		return nil, errors.New("table has no data rows")
	}
	return g, nil
}

// decodeHTML converts raw to UTF-8. An explicit encoding wins, then valid
// UTF-8, then a declared meta charset, then GBK.
func decodeHTML(raw []byte, encoding string) (string, error) {
	if encoding == "" {
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		if m := metaCharset.FindSubmatch(raw); m != nil {
			encoding = string(m[1])
		} else {
			encoding = "gbk"
		}
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		enc = simplifiedchinese.GBK
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode HTML as %s: %w", encoding, err)
	}
	return string(out), nil
}
