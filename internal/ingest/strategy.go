package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Engine names a reading backend
type Engine string

const (
	EngineExcelize  Engine = "excelize"
	EngineXLSX      Engine = "xlsx"
	EngineXLS       Engine = "xls"
	EngineHTML      Engine = "html"
	EngineDelimited Engine = "delimited"
	EngineConvert   Engine = "convert"
)

// HeaderMode tells whether the first non-blank row holds column names
type HeaderMode string

const (
	HeaderFirstRow HeaderMode = "header"
	HeaderNone     HeaderMode = "no-header"
)

// AllSheets makes a workbook engine try every sheet in order
const AllSheets = "*"

// Strategy is one read configuration. Strategies are evaluated in order and
// the first one yielding a usable table wins.
type Strategy struct {
	Name       string
	Engine     Engine
	Encoding   string
	HeaderMode HeaderMode
	Sheet      string
}

var (
	excelizeHeader   = Strategy{Name: "excelize/header", Engine: EngineExcelize, HeaderMode: HeaderFirstRow}
	excelizeNoHeader = Strategy{Name: "excelize/no-header", Engine: EngineExcelize, HeaderMode: HeaderNone}
	excelizeSheets   = Strategy{Name: "excelize/all-sheets", Engine: EngineExcelize, HeaderMode: HeaderFirstRow, Sheet: AllSheets}
	xlsxHeader       = Strategy{Name: "xlsx/header", Engine: EngineXLSX, HeaderMode: HeaderFirstRow}
	xlsBinary        = Strategy{Name: "xls", Engine: EngineXLS, HeaderMode: HeaderFirstRow}
	htmlTable        = Strategy{Name: "html", Engine: EngineHTML, HeaderMode: HeaderFirstRow}
	delimitedUTF8    = Strategy{Name: "delimited/utf-8", Engine: EngineDelimited, Encoding: "utf-8", HeaderMode: HeaderFirstRow}
	delimitedGBK     = Strategy{Name: "delimited/gbk", Engine: EngineDelimited, Encoding: "gbk", HeaderMode: HeaderFirstRow}
	delimitedGB18030 = Strategy{Name: "delimited/gb18030", Engine: EngineDelimited, Encoding: "gb18030", HeaderMode: HeaderFirstRow}
	convertExternal  = Strategy{Name: "convert", Engine: EngineConvert, HeaderMode: HeaderFirstRow}
)

var knownStrategies = map[string]Strategy{}

func init() {
	for _, s := range []Strategy{
		excelizeHeader, excelizeNoHeader, excelizeSheets, xlsxHeader, xlsBinary, htmlTable,
		delimitedUTF8, delimitedGBK, delimitedGB18030, convertExternal,
	} {
		knownStrategies[s.Name] = s
	}
}

// DefaultStrategies returns the read order for a file, chosen by extension.
// For .xls the binary reader goes first and rejects anything without the
// compound document signature; broker exports that are HTML or GBK text in
// disguise fall through to those readers.
func DefaultStrategies(path string) []Strategy {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return []Strategy{
			xlsBinary,
			htmlTable,
			delimitedGBK,
			delimitedGB18030,
			delimitedUTF8,
			excelizeHeader,
			xlsxHeader,
			convertExternal,
		}
	}
	return []Strategy{
		excelizeHeader,
		excelizeNoHeader,
		excelizeSheets,
		xlsxHeader,
		xlsBinary,
		htmlTable,
		delimitedUTF8,
		delimitedGBK,
		delimitedGB18030,
		convertExternal,
	}
}

// StrategiesByName resolves configured strategy names
func StrategiesByName(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := knownStrategies[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown ingest strategy %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// StrategyNames lists every known strategy name
func StrategyNames() []string {
	names := make([]string, 0, len(knownStrategies))
	for _, s := range DefaultStrategies("x.xlsx") {
		names = append(names, s.Name)
	}
	return names
}
