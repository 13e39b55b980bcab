// Package files finds spreadsheet inputs and writes output files.
//
// Discovery walks an input folder recursively for .xls and .xlsx files,
// skipping office lock files, and returns them sorted by path. Manager writes
// report files atomically into the output directory without overwriting
// earlier reports.
package files
