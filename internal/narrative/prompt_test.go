package narrative

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"stockdesk/pkg/contracts/domain"
)

func sampleSummary() domain.SummaryStats {
	return domain.SummaryStats{
		Aggregate: domain.DatasetStats{
			Files: 2, Ingested: 2, Rows: 40, Identifiers: 20,
			DateFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local),
			DateTo:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local),
			Means:    []domain.ColumnMean{{Column: "涨跌幅", Mean: 1.25}},
		},
		Entity:       domain.DatasetStats{Files: 3, Ingested: 3, Rows: 9, Identifiers: 3},
		Entities:     3,
		ReturnsCount: 2,
	}
}

func sampleTop() []domain.ReturnRecord {
	return []domain.ReturnRecord{
		{EntityID: "600519", StartValue: 10, EndValue: 15, PctChange: 50, ObservationCount: 3},
		{EntityID: "000001", StartValue: 10, EndValue: 11, PctChange: 10, ObservationCount: 3},
	}
}

func TestBuildRequest(t *testing.T) {
	req := BuildRequest("  预测未来三天走势  ", sampleSummary(), sampleTop(), 0)

	assert.Equal(t, SystemPersona, req.System)
	assert.True(t, strings.HasPrefix(req.User, "预测未来三天走势\n"))
	assert.Contains(t, req.User, "只能引用下列股票代码")
	assert.Contains(t, req.User, "600519、000001")
	assert.Contains(t, req.User, "1. 600519 涨幅 50.00%")
	assert.Contains(t, req.User, "板块数据: 共 40 条记录，涵盖 20 个板块")
	assert.Contains(t, req.User, "涨跌幅均值: 1.25")
	assert.Contains(t, req.User, "2025-01-01 至 2025-01-02")
}

func TestBuildRequest_BoundsContextButKeepsWhitelist(t *testing.T) {
	top := make([]domain.ReturnRecord, 0, 200)
	for i := 0; i < 200; i++ {
		top = append(top, domain.ReturnRecord{EntityID: strings.Repeat("9", 6), PctChange: float64(i)})
	}
	top[199].EntityID = "LAST01"

	req := BuildRequest("p", sampleSummary(), top, 500)

	ctx := DataContext(sampleSummary(), top)
	assert.Greater(t, utf8.RuneCountInString(ctx), 500)
	assert.Contains(t, req.User, truncationMarker)
	assert.Contains(t, req.User, "LAST01", "whitelist is outside the bounded context")
}

func TestBuildRequest_NoReturns(t *testing.T) {
	req := BuildRequest("p", domain.SummaryStats{}, nil, 100)
	assert.Contains(t, req.User, "（无）")
	assert.Contains(t, req.User, "板块数据: 无")
}

func TestDataContext_FallbackNote(t *testing.T) {
	s := sampleSummary()
	s.FallbackPrice = true
	s.RowsDropped = 4
	ctx := DataContext(s, sampleTop())
	assert.Contains(t, ctx, "第一个数值列")
	assert.Contains(t, ctx, "剔除缺失值过多的行: 4")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	out := truncateRunes(strings.Repeat("股", 100), 20)
	assert.Equal(t, 20, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Equal(t, truncationMarker, truncateRunes(strings.Repeat("a", 50), 3))
}
