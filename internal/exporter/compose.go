package exporter

import (
	"time"

	"stockdesk/pkg/contracts/domain"
)

// Report titles
const (
	TitleFull     = "股票分析报告"
	TitleDegraded = "股票数据分析报告"
)

// Disclaimer closes every report
const Disclaimer = "本报告基于历史数据和技术分析生成，仅供参考，不构成投资建议。" +
	"股票市场存在风险，投资需谨慎。" +
	"过去表现不代表未来收益，请结合自身风险承受能力做出投资决策。"

// FallbackPriceNote marks rankings computed from the first numeric column
const FallbackPriceNote = "未找到标准价格列，收益率基于第一个数值列计算，仅供参考。"

// Degraded report explanations
const (
	ReasonNoEntityData = "未能成功分析个股数据"
	ReasonNoReturns    = "本次分析成功读取了数据文件，但无法计算股票收益率"
)

var (
	noEntityDataCauses = []string{
		"文件格式不兼容",
		"未找到股票代码列",
		"数据列名不标准",
		"文件内容为空或格式错误",
	}
	noEntityDataSuggestions = []string{
		"检查文件是否为标准Excel格式",
		"确认文件包含股票代码和价格信息",
		"查看详细日志了解具体错误",
	}
	noReturnsCauses = []string{
		"数据中不包含标准的价格列（如收盘价、价格等）",
		"价格数据格式不正确",
		"数据量不足",
	}
	noReturnsSuggestions = []string{
		"检查数据文件是否包含价格信息",
		"确认价格列为数值格式",
		"确保有足够的历史数据",
		"查看详细日志了解具体问题",
	}
)

// ComposeInput carries everything a report is built from
type ComposeInput struct {
	GeneratedAt     time.Time
	Prompt          string
	Source          string
	Summary         domain.SummaryStats
	Narrative       string
	NarrativeSource domain.NarrativeSource
	Top             []domain.ReturnRecord
	// Diagnostics are per-run notes, such as skipped files, appended to the
	// explanation of a degraded report.
	Diagnostics []string
}

// Compose builds the report model. A run without any ranked entity yields a
// degraded report that explains why instead of a ranking.
func Compose(in ComposeInput) *domain.AnalysisReport {
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	r := &domain.AnalysisReport{
		GeneratedAt:     generated,
		Title:           TitleFull,
		Prompt:          in.Prompt,
		Source:          in.Source,
		Summary:         in.Summary,
		Narrative:       in.Narrative,
		NarrativeSource: in.NarrativeSource,
		TopEntities:     in.Top,
		Disclaimer:      Disclaimer,
	}

	if len(in.Top) > 0 {
		return r
	}

	r.Degraded = true
	r.Title = TitleDegraded
	if in.Summary.Entity.Ingested == 0 {
		r.DegradedReason = ReasonNoEntityData
		r.Diagnostics = append(append([]string{}, noEntityDataCauses...), in.Diagnostics...)
		r.Suggestions = append([]string{}, noEntityDataSuggestions...)
	} else {
		r.DegradedReason = ReasonNoReturns
		r.Diagnostics = append(append([]string{}, noReturnsCauses...), in.Diagnostics...)
		r.Suggestions = append([]string{}, noReturnsSuggestions...)
	}
	return r
}
