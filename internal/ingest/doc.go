// Package ingest reads broker spreadsheet exports into raw tables.
//
// Each file is tried against an ordered list of strategies (workbook
// engines for OOXML and binary BIFF files, HTML tables, delimited text in
// several encodings and an optional external converter). The first strategy
// that yields a non-empty table wins and every failed attempt is kept on the
// result for diagnostics.
package ingest
