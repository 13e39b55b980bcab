package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockdesk/pkg/contracts/domain"
)

func TestClean(t *testing.T) {
	table := domain.NewRawTable(
		[]string{"代码", "名称", "收盘", "成交量"},
		[][]string{
			{"600519", "贵州茅台", "1700", "100"}, // 0 missing
			{"000001", "", "12.5", "200"},        // 1/4
			{"000002", "", "", "300"},            // 2/4 -> dropped at 0.5
			{"", "", "", "nan"},                  // 4/4
			{"000003", "x"},                      // short row: 2/4
		},
	)

	cleaned, removed := Clean(table, 0.5)

	assert.Equal(t, 3, removed)
	assert.Len(t, cleaned.Rows, 2)
	assert.Equal(t, "600519", cleaned.At(0, 0).Value)
	assert.Equal(t, "000001", cleaned.At(1, 0).Value)
	assert.Len(t, table.Rows, 5, "input not modified")
}

func TestClean_Thresholds(t *testing.T) {
	table := domain.NewRawTable(
		[]string{"a", "b", "c", "d"},
		[][]string{
			{"1", "2", "3", "4"},
			{"1", "", "3", "4"},
			{"1", "", "", "4"},
			{"1", "", "", ""},
		},
	)

	tests := []struct {
		threshold float64
		wantRows  int
	}{
		{0.25, 1},
		{0.5, 2},
		{0.75, 3},
		{1.0, 4},
	}
	for _, tt := range tests {
		cleaned, removed := Clean(table, tt.threshold)
		assert.Len(t, cleaned.Rows, tt.wantRows, "threshold %v", tt.threshold)
		assert.Equal(t, 4-tt.wantRows, removed)
	}
}

func TestClean_Idempotent(t *testing.T) {
	table := domain.NewRawTable(
		[]string{"a", "b", "c"},
		[][]string{{"1", "", ""}, {"1", "2", ""}, {"", "", ""}, {"1", "2", "3"}},
	)

	once, _ := Clean(table, 0.5)
	twice, removed := Clean(once, 0.5)

	assert.Equal(t, 0, removed)
	assert.Equal(t, once, twice)
}

func TestClean_ZeroColumns(t *testing.T) {
	table := &domain.RawTable{}
	cleaned, removed := Clean(table, 0.5)
	assert.Same(t, table, cleaned)
	assert.Zero(t, removed)

	cleaned, removed = Clean(nil, 0.5)
	assert.Nil(t, cleaned)
	assert.Zero(t, removed)
}

func TestCleaner_DefaultsInvalidThreshold(t *testing.T) {
	c := NewCleaner(0, nil)
	table := domain.NewRawTable([]string{"a", "b"}, [][]string{{"1", ""}, {"1", "2"}})
	cleaned, removed := c.Clean("t.xlsx", table)
	assert.Equal(t, 1, removed)
	assert.Len(t, cleaned.Rows, 1)
}
