package dataprocessing

import (
	"time"

	"stockdesk/pkg/contracts/domain"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.Local)
}

func dated(path string, date time.Time, columns []string, rows ...[]string) domain.DatedTable {
	return domain.DatedTable{
		File: domain.ClassifiedFile{
			Path:       path,
			Category:   domain.CategoryEntity,
			Date:       date,
			DateSource: domain.DateFromFilename,
		},
		Table: domain.NewRawTable(columns, rows),
	}
}

func buildTables(columns []string, fixtures []tableFixture) []domain.DatedTable {
	out := make([]domain.DatedTable, 0, len(fixtures))
	for _, f := range fixtures {
		out = append(out, dated(f.path, day(f.day), columns, f.rows...))
	}
	return out
}

type tableFixture struct {
	path string
	day  int
	rows [][]string
}
