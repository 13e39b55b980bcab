package narrative

import (
	"fmt"
	"strings"

	"stockdesk/pkg/contracts/domain"
)

// SystemPersona is the system message sent with every request
const SystemPersona = "你是专业的股票数据分析师，擅长技术分析和基本面分析。"

// DefaultContextLimit bounds the data context in characters
const DefaultContextLimit = 6000

// truncationMarker ends a context that was cut to fit the limit
const truncationMarker = "\n……（数据背景已截断）"

const instructionTemplate = `%s

数据背景:
%s

请基于以上数据，按照以下要求进行分析：
1. 分析板块数据，总结大盘规律和趋势
2. 分析个股数据，识别有潜力的个股特征
3. 结合大盘规律和个股特征，给出值得关注的股票
4. 给出详细的投资建议和风险提示

【重要限制条件】：
- 只能引用下列股票代码，禁止自行发挥或添加数据中不存在的股票：%s
- 数据中的'代码'列是股票代码，'名称'列是股票名称
- 只能基于提供的数据进行分析，不能引入外部知识

请以专业的股票分析师角度进行回答，确保分析逻辑严谨。`

// BuildRequest assembles the chat request for a run. The data context is a
// summary of the inputs, cut to limit characters. The identifier whitelist is
// never cut.
func BuildRequest(prompt string, summary domain.SummaryStats, top []domain.ReturnRecord, limit int) Request {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	ids := make([]string, 0, len(top))
	for _, r := range top {
		ids = append(ids, r.EntityID)
	}
	allowed := "（无）"
	if len(ids) > 0 {
		allowed = strings.Join(ids, "、")
	}

	user := fmt.Sprintf(instructionTemplate,
		strings.TrimSpace(prompt),
		truncateRunes(DataContext(summary, top), limit),
		allowed)

	return Request{System: SystemPersona, User: user}
}

// DataContext renders summary statistics and ranked returns as plain text
func DataContext(summary domain.SummaryStats, top []domain.ReturnRecord) string {
	var b strings.Builder

	writeDataset(&b, "板块数据", "个板块", summary.Aggregate)
	writeDataset(&b, "个股数据", "支股票", summary.Entity)

	if summary.RowsDropped > 0 {
		fmt.Fprintf(&b, "清洗时剔除缺失值过多的行: %d\n", summary.RowsDropped)
	}

	if len(top) > 0 {
		fmt.Fprintf(&b, "\n区间涨幅排名（共 %d 支可计算收益）:\n", summary.ReturnsCount)
		for i, r := range top {
			fmt.Fprintf(&b, "%d. %s 涨幅 %.2f%%，起始 %.2f，结束 %.2f，数据点 %d\n",
				i+1, r.EntityID, r.PctChange, r.StartValue, r.EndValue, r.ObservationCount)
		}
		if summary.FallbackPrice {
			b.WriteString("注意: 未找到标准价格列，收益率基于第一个数值列计算，仅供参考。\n")
		}
	}

	return b.String()
}

func writeDataset(b *strings.Builder, label, unit string, s domain.DatasetStats) {
	if s.Ingested == 0 {
		fmt.Fprintf(b, "%s: 无（文件 %d 个，跳过 %d 个）\n", label, s.Files, s.Skipped)
		return
	}
	fmt.Fprintf(b, "%s: 共 %d 条记录，涵盖 %d %s，文件 %d 个（跳过 %d 个）\n",
		label, s.Rows, s.Identifiers, unit, s.Files, s.Skipped)
	if !s.DateFrom.IsZero() {
		fmt.Fprintf(b, "- 时间范围: %s 至 %s\n", s.DateFrom.Format("2006-01-02"), s.DateTo.Format("2006-01-02"))
	}
	for _, m := range s.Means {
		fmt.Fprintf(b, "- %s均值: %.2f\n", m.Column, m.Mean)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	marker := []rune(truncationMarker)
	keep := limit - len(marker)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncationMarker
}
