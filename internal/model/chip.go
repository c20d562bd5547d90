package model

// ChipSnapshot 单个交易日的筹码分布统计（成本分位）
// 字段值为0表示该分位缺失
type ChipSnapshot struct {
	TradeDate  string  `json:"trade_date"` // YYYYMMDD
	HisLow     float64 `json:"his_low"`
	HisHigh    float64 `json:"his_high"`
	Cost5      float64 `json:"cost_5pct"`
	Cost15     float64 `json:"cost_15pct"`
	Cost50     float64 `json:"cost_50pct"`
	Cost85     float64 `json:"cost_85pct"`
	Cost95     float64 `json:"cost_95pct"`
	WeightAvg  float64 `json:"weight_avg"`
	WinnerRate float64 `json:"winner_rate"`
}

// ChipLevel 单价位筹码占比（每日分布明细）
type ChipLevel struct {
	TradeDate string  `json:"trade_date"`
	Price     float64 `json:"price"`
	Percent   float64 `json:"percent"`
}

// CostChange 某一分位成本在窗口首末的变化
type CostChange struct {
	Earliest float64 `json:"earliest"`
	Latest   float64 `json:"latest"`
	Delta    float64 `json:"delta"`
	DeltaPct float64 `json:"delta_pct"`
}

// ConcentrationChange 筹码集中度变化
type ConcentrationChange struct {
	EarliestRangePct float64 `json:"earliest_range_pct"`
	LatestRangePct   float64 `json:"latest_range_pct"`
	EarliestLevel    string  `json:"earliest_level"` // 高/中/低
	LatestLevel      string  `json:"latest_level"`
	Trend            string  `json:"trend"` // 提升/下降/稳定
}

// PeakAnalysis 筹码峰移动分析
type PeakAnalysis struct {
	Direction string `json:"direction"` // 上移/下移/震荡
	Speed     string `json:"speed"`     // 快速/缓慢/不稳定
}

// MainForceBehavior 主力行为判断
type MainForceBehavior struct {
	Judgment   string   `json:"judgment"`
	Confidence string   `json:"confidence"` // 高/中/低
	Score      int      `json:"score"`
	Signals    []string `json:"signals"`
}

// ChipChangeAnalysis 30日窗口内筹码迁移的完整分析结果
type ChipChangeAnalysis struct {
	PeriodStart   string                `json:"period_start"`
	PeriodEnd     string                `json:"period_end"`
	CostChanges   map[string]CostChange `json:"cost_changes"`
	Concentration ConcentrationChange   `json:"concentration_changes"`
	PeakAnalysis  PeakAnalysis          `json:"chip_peak_analysis"`
	MainForce     MainForceBehavior     `json:"main_force_behavior"`
}
