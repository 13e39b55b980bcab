package narrative

import (
	"fmt"
	"strings"

	"stockdesk/pkg/contracts/domain"
)

// Advice buckets for the local narrative, by percentage change
const (
	StrongThreshold = 20.0

	AdviceStrong   = "表现优秀，可考虑持有或适量加仓"
	AdvicePositive = "表现良好，可继续观察"
	AdviceCautious = "表现一般，建议谨慎操作"
)

// Advice returns the bucket text for a return
func Advice(pct float64) string {
	switch {
	case pct > StrongThreshold:
		return AdviceStrong
	case pct > 0:
		return AdvicePositive
	default:
		return AdviceCautious
	}
}

// Fallback builds a narrative locally from the summary and ranked returns.
// The result is never empty.
func Fallback(summary domain.SummaryStats, top []domain.ReturnRecord) string {
	var b strings.Builder

	b.WriteString("【基础大盘分析】\n\n")
	agg := summary.Aggregate
	if agg.Ingested == 0 {
		b.WriteString("暂无大盘数据可供分析\n")
	} else {
		fmt.Fprintf(&b, "数据文件数量: %d\n", agg.Ingested)
		fmt.Fprintf(&b, "总数据条数: %d\n", agg.Rows)
		if !agg.DateFrom.IsZero() {
			fmt.Fprintf(&b, "数据时间范围: %s 至 %s\n",
				agg.DateFrom.Format("2006-01-02"), agg.DateTo.Format("2006-01-02"))
		}
		for _, m := range agg.Means {
			fmt.Fprintf(&b, "- %s平均值: %.2f\n", m.Column, m.Mean)
		}
	}

	if len(top) == 0 {
		b.WriteString("\n【基础个股分析】\n\n未能计算个股收益率。\n")
		return b.String()
	}

	for _, r := range top {
		fmt.Fprintf(&b, "\n【股票 %s 基础分析】\n\n", r.EntityID)
		fmt.Fprintf(&b, "累计涨幅: %.2f%%\n", r.PctChange)
		fmt.Fprintf(&b, "起始价格: %.2f\n", r.StartValue)
		fmt.Fprintf(&b, "当前价格: %.2f\n", r.EndValue)
		fmt.Fprintf(&b, "数据点数: %d\n", r.ObservationCount)
		fmt.Fprintf(&b, "投资建议: %s\n", Advice(r.PctChange))
	}
	return b.String()
}
