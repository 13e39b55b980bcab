package dataprocessing

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// garbledPatterns are substrings left behind when UTF-8 Chinese text is
// decoded as Latin-1 or CP1252. Detection is a heuristic and misses some
// corruptions.
var garbledPatterns = []string{"ä¸", "å", "ç»", "è¿", "é", "ï¼", "�"}

// garbledReplacements maps common mis-decoded sequences back to their
// characters. Longer keys are applied first.
var garbledReplacements = []struct{ from, to string }{
	{"ä¸‰", "三"},
	{"ç»§", "继"},
	{"å«", "叫"},
	{"è¿", "进"},
	{"ï¼", "，"},
	{"é", "送"},
}

type namedEncoding struct {
	name string
	enc  encoding.Encoding
}

// byteDecodings is the order in which raw header bytes are decoded
var byteDecodings = []namedEncoding{
	{"gbk", simplifiedchinese.GBK},
	{"utf-8", unicode.UTF8},
	{"gb18030", simplifiedchinese.GB18030},
	{"latin1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

// reverseDecodings undo a wrong single-byte decoding
var reverseDecodings = []namedEncoding{
	{"cp1252", charmap.Windows1252},
	{"latin1", charmap.ISO8859_1},
}

// ColumnRepairer recovers readable column names from mis-decoded headers
type ColumnRepairer struct {
	logger *slog.Logger
}

// NewColumnRepairer creates a ColumnRepairer
func NewColumnRepairer(logger *slog.Logger) *ColumnRepairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ColumnRepairer{logger: logger}
}

// Repair returns one readable, unique name per input. Inputs may be strings,
// raw bytes, numbers or nil. Unrecoverable names become column_<i> (1-based).
func (r *ColumnRepairer) Repair(names []any) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = r.repairOne(i, n)
	}
	return dedupe(out)
}

// RepairStrings is Repair for string headers
func (r *ColumnRepairer) RepairStrings(names []string) []string {
	in := make([]any, len(names))
	for i, n := range names {
		in[i] = n
	}
	return r.Repair(in)
}

// Repair repairs names with a default repairer
func Repair(names []any) []string {
	return NewColumnRepairer(nil).Repair(names)
}

// IsGarbled reports whether text looks like mojibake
func IsGarbled(text string) bool {
	if !utf8.ValidString(text) {
		return true
	}
	for _, p := range garbledPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Placeholder returns the positional name for the zero-based column index
func Placeholder(index int) string {
	return "column_" + strconv.Itoa(index+1)
}

func (r *ColumnRepairer) repairOne(index int, name any) string {
	switch v := name.(type) {
	case nil:
		return Placeholder(index)
	case []byte:
		return r.repairBytes(index, v)
	case string:
		return r.repairText(index, v)
	case fmt.Stringer:
		return r.repairText(index, v.String())
	case int, int64, float64:
		return fmt.Sprint(v)
	default:
		return Placeholder(index)
	}
}

func (r *ColumnRepairer) repairText(index int, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Placeholder(index)
	}
	if !IsGarbled(text) {
		return text
	}

	if fixed, how := reverseMisdecoding(text); fixed != "" {
		r.logger.Debug("Column name repaired",
			slog.String("from", text), slog.String("to", fixed), slog.String("method", how))
		return fixed
	}

	replaced := text
	for _, rep := range garbledReplacements {
		replaced = strings.ReplaceAll(replaced, rep.from, rep.to)
	}
	if replaced != text && utf8.ValidString(replaced) {
		r.logger.Debug("Column name repaired",
			slog.String("from", text), slog.String("to", replaced), slog.String("method", "table"))
		return replaced
	}

	r.logger.Debug("Column name unrecoverable", slog.String("name", text), slog.Int("index", index))
	return Placeholder(index)
}

func (r *ColumnRepairer) repairBytes(index int, raw []byte) string {
	var lastResort string
	for _, d := range byteDecodings {
		decoded, err := d.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(decoded))
		if text == "" {
			continue
		}
		if d.name == "utf-8" && !utf8.Valid(raw) {
			continue
		}
		if !IsGarbled(text) {
			r.logger.Debug("Column name decoded",
				slog.String("encoding", d.name), slog.String("name", text))
			return text
		}
		if lastResort == "" && utf8.ValidString(text) {
			lastResort = text
		}
	}
	if lastResort == "" {
		return Placeholder(index)
	}
	return r.repairText(index, lastResort)
}

// reverseMisdecoding re-encodes text with a single-byte charset and decodes
// the bytes as UTF-8, then GBK. Returns "" when no decoding is clean.
func reverseMisdecoding(text string) (string, string) {
	for _, rev := range reverseDecodings {
		raw, err := rev.enc.NewEncoder().String(text)
		if err != nil {
			continue
		}
		if utf8.ValidString(raw) && raw != text && !IsGarbled(raw) {
			return raw, rev.name + "->utf-8"
		}
		gbk, err := simplifiedchinese.GBK.NewDecoder().String(raw)
		if err == nil && gbk != text && !IsGarbled(gbk) && hasHan(gbk) {
			return gbk, rev.name + "->gbk"
		}
	}
	return "", ""
}

func hasHan(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

// dedupe suffixes repeated names with _2, _3, ...
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = false
	}
	used := make(map[string]bool, len(names))
	for i, n := range names {
		if !used[n] {
			used[n] = true
			continue
		}
		for k := 2; ; k++ {
			candidate := n + "_" + strconv.Itoa(k)
			if _, exists := seen[candidate]; !exists && !used[candidate] {
				names[i] = candidate
				used[candidate] = true
				break
			}
		}
	}
	return names
}
