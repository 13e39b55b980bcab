package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// DelimitedReader reads tab or comma separated text exports in a given
// encoding. Many legacy .xls downloads are GBK text in disguise.
type DelimitedReader struct{}

// Read implements Reader
func (DelimitedReader) Read(ctx context.Context, path string, s Strategy) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, errors.New("binary content")
	}

	text, err := decodeText(raw, s.Encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = detectDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse delimited text: %w", err)
		}
		rows = append(rows, record)
	}

	g := newGrid(rows, s.HeaderMode)
	if !g.HasData() {
		return nil, errors.New("no data rows")
	}
	if g.Width() < 2 {
		return nil, errors.New("single column; not a delimited table")
	}
	return g, nil
}

// decodeText converts raw bytes in the named encoding to UTF-8. A result
// containing replacement characters is rejected so the next encoding is tried.
func decodeText(raw []byte, name string) (string, error) {
	var enc encoding.Encoding
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(raw) {
			return "", errors.New("invalid utf-8 text")
		}
		return string(raw), nil
	case "utf-16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "gbk":
		enc = simplifiedchinese.GBK
	case "gb18030":
		enc = simplifiedchinese.GB18030
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode as %s: %w", name, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("invalid %s text", name)
	}
	return string(out), nil
}

// detectDelimiter picks tab when the first line contains one, else comma
func detectDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	if strings.Contains(line, "\t") {
		return '\t'
	}
	return ','
}
