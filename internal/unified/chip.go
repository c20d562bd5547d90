package unified

import (
	"math"

	"stock-research-backend/internal/model"
)

// 筹码集中度分档阈值（range_pct）
const (
	concentrationHighBelow = 10.0 // <10% 高集中
	concentrationLowAbove  = 30.0 // >30% 低集中
)

// 启发式打分阈值，调整任何一项都会改变判级行为
const (
	peakFastRatio      = 1.5  // 峰移速度：|均价变动| > 1.5×|中位变动| 为快速
	exitHighCostRatio  = 1.5  // 高位成本上升超过低位变动1.5倍判派发
	nearPriceTolerance = 0.10 // 现价与新均价的接近判定（10%）
	lowCostStableBand  = 0.10 // 5分位成本"稳定"判定（±10%）
)

// chipPercentiles 参与成本变化统计的分位及取值函数
var chipPercentiles = []struct {
	key string
	get func(*model.ChipSnapshot) float64
}{
	{"cost_5pct", func(s *model.ChipSnapshot) float64 { return s.Cost5 }},
	{"cost_15pct", func(s *model.ChipSnapshot) float64 { return s.Cost15 }},
	{"cost_50pct", func(s *model.ChipSnapshot) float64 { return s.Cost50 }},
	{"cost_85pct", func(s *model.ChipSnapshot) float64 { return s.Cost85 }},
	{"cost_95pct", func(s *model.ChipSnapshot) float64 { return s.Cost95 }},
	{"weight_avg", func(s *model.ChipSnapshot) float64 { return s.WeightAvg }},
}

// AnalyzeChipChanges 对一个时间窗口（首末快照）做筹码迁移分析。
// currentPrice为0表示未提供现价。快照少于2个返回nil。
func AnalyzeChipChanges(snapshots []model.ChipSnapshot, currentPrice float64) *model.ChipChangeAnalysis {
	if len(snapshots) < 2 {
		return nil
	}
	earliest := &snapshots[0]
	latest := &snapshots[len(snapshots)-1]

	out := &model.ChipChangeAnalysis{
		PeriodStart: earliest.TradeDate,
		PeriodEnd:   latest.TradeDate,
		CostChanges: map[string]model.CostChange{},
	}

	// 1. 各分位成本变化，端点缺失的分位跳过
	for _, p := range chipPercentiles {
		e, l := p.get(earliest), p.get(latest)
		if e == 0 || l == 0 {
			continue
		}
		out.CostChanges[p.key] = model.CostChange{
			Earliest: e,
			Latest:   l,
			Delta:    l - e,
			DeltaPct: (l - e) / e * 100,
		}
	}

	// 2. 集中度：range_pct = (85分位-15分位)/50分位
	out.Concentration = analyzeConcentration(earliest, latest)

	// 3. 筹码峰移动
	out.PeakAnalysis = analyzePeak(out.CostChanges)

	// 4. 主力行为打分
	out.MainForce = scoreMainForce(out, currentPrice)

	return out
}

// concentrationLevel range_pct分档
func concentrationLevel(rangePct float64) string {
	switch {
	case rangePct < concentrationHighBelow:
		return "高"
	case rangePct > concentrationLowAbove:
		return "低"
	default:
		return "中"
	}
}

func rangePct(s *model.ChipSnapshot) (float64, bool) {
	if s.Cost85 == 0 || s.Cost15 == 0 || s.Cost50 == 0 {
		return 0, false
	}
	return (s.Cost85 - s.Cost15) / s.Cost50 * 100, true
}

func analyzeConcentration(earliest, latest *model.ChipSnapshot) model.ConcentrationChange {
	cc := model.ConcentrationChange{Trend: "稳定"}
	ePct, eok := rangePct(earliest)
	lPct, lok := rangePct(latest)
	if eok {
		cc.EarliestRangePct = ePct
		cc.EarliestLevel = concentrationLevel(ePct)
	}
	if lok {
		cc.LatestRangePct = lPct
		cc.LatestLevel = concentrationLevel(lPct)
	}
	if eok && lok {
		switch {
		case lPct < ePct:
			cc.Trend = "提升" // 区间收窄 = 集中度提升
		case lPct > ePct:
			cc.Trend = "下降"
		}
	}
	return cc
}

func analyzePeak(changes map[string]model.CostChange) model.PeakAnalysis {
	pa := model.PeakAnalysis{Direction: "震荡", Speed: "不稳定"}
	wavg, hasWavg := changes["weight_avg"]
	mid, hasMid := changes["cost_50pct"]
	if !hasWavg || !hasMid {
		return pa
	}
	switch {
	case wavg.Delta > 0 && mid.Delta > 0:
		pa.Direction = "上移"
	case wavg.Delta < 0 && mid.Delta < 0:
		pa.Direction = "下移"
	}
	if pa.Direction != "震荡" {
		if math.Abs(wavg.Delta) > peakFastRatio*math.Abs(mid.Delta) {
			pa.Speed = "快速"
		} else {
			pa.Speed = "缓慢"
		}
	}
	return pa
}

// scoreMainForce 固定规则集累计带符号得分，阈值与顺序保持不变
func scoreMainForce(a *model.ChipChangeAnalysis, currentPrice float64) model.MainForceBehavior {
	score := 0
	var signals []string

	// 规则1：集中度提升且当前集中度不低 -> 吸筹迹象
	if a.Concentration.Trend == "提升" &&
		(a.Concentration.LatestLevel == "高" || a.Concentration.LatestLevel == "中") {
		score += 2
		signals = append(signals, "筹码集中度提升，可能有主力收集筹码")
	}

	// 规则2：平均成本下移且现价贴近新均价 -> 低位吸筹。
	// 贴近按双向距离判定，现价远低于新均价同样不计入
	if wavg, ok := a.CostChanges["weight_avg"]; ok && wavg.Delta < 0 && currentPrice > 0 {
		if math.Abs(currentPrice-wavg.Latest)/wavg.Latest <= nearPriceTolerance {
			score += 2
			signals = append(signals, "平均成本下移且贴近现价，可能低位吸筹")
		}
	}

	// 规则3：峰上移且高位成本上升远快于低位 -> 获利盘出逃。
	// 高位成本必须实际上升才计入，幅度比较按绝对值，低位下跌不会误触发
	if a.PeakAnalysis.Direction == "上移" {
		high, hok := a.CostChanges["cost_85pct"]
		low, lok := a.CostChanges["cost_15pct"]
		if hok && lok && high.Delta > 0 && math.Abs(high.Delta) > exitHighCostRatio*math.Abs(low.Delta) {
			score -= 3
			signals = append(signals, "高位成本快速上升，可能获利出逃")
		}
	}

	// 规则4：集中度下降且已处低位 -> 筹码发散，散户接盘
	if a.Concentration.Trend == "下降" && a.Concentration.LatestLevel == "低" {
		score -= 2
		signals = append(signals, "筹码集中度下降且分布变散，可能散户接盘")
	}

	// 规则5：低位成本稳定而中位上移 -> 洗盘后拉升
	low5, ok5 := a.CostChanges["cost_5pct"]
	mid, okMid := a.CostChanges["cost_50pct"]
	if ok5 && okMid && math.Abs(low5.Delta) < lowCostStableBand*low5.Earliest && mid.Delta > 0 {
		score += 1
		signals = append(signals, "低位成本稳定而中位成本上移，可能洗盘拉升")
	}

	mf := model.MainForceBehavior{Score: score, Signals: signals}
	switch {
	case score >= 3:
		mf.Judgment = "收集低价筹码"
		mf.Confidence = "高"
	case score >= 1:
		mf.Judgment = "可能收集筹码"
		mf.Confidence = "中"
	case score <= -3:
		mf.Judgment = "获利出逃"
		mf.Confidence = "高"
	case score <= -1:
		mf.Judgment = "可能获利了结"
		mf.Confidence = "中"
	default:
		mf.Judgment = "震荡整理"
		mf.Confidence = "低"
	}
	return mf
}
