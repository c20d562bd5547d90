package unified

import (
	"strings"
	"testing"

	"stock-research-backend/internal/model"
)

func TestAnalyzeChipChanges_TooFewSnapshots(t *testing.T) {
	if got := AnalyzeChipChanges([]model.ChipSnapshot{{TradeDate: "20240101"}}, 0); got != nil {
		t.Error("expected nil with fewer than 2 snapshots")
	}
}

func TestAnalyzeChipChanges_AccumulationScenario(t *testing.T) {
	// 最早：均价10，集中度"中"（range_pct ≈ 20%）
	// 最新：均价9（下移），集中度"高"（range_pct < 10%），现价9.2贴近新均价
	snapshots := []model.ChipSnapshot{
		{
			TradeDate: "20240101",
			Cost5:     8.5, Cost15: 9.0, Cost50: 10.0, Cost85: 11.0, Cost95: 11.5,
			WeightAvg: 10.0,
		},
		{
			TradeDate: "20240201",
			Cost5:     8.6, Cost15: 8.8, Cost50: 9.1, Cost85: 9.6, Cost95: 9.8,
			WeightAvg: 9.0,
		},
	}
	a := AnalyzeChipChanges(snapshots, 9.2)
	if a == nil {
		t.Fatal("expected analysis")
	}
	if a.Concentration.Trend != "提升" {
		t.Errorf("concentration trend = %s, want 提升", a.Concentration.Trend)
	}
	if a.Concentration.LatestLevel != "高" {
		t.Errorf("latest level = %s, want 高", a.Concentration.LatestLevel)
	}
	if a.MainForce.Score < 2 {
		t.Errorf("score = %d, want >= 2", a.MainForce.Score)
	}
	if !strings.Contains(a.MainForce.Judgment, "收集") {
		t.Errorf("judgment = %s, want to contain 收集", a.MainForce.Judgment)
	}
}

func TestAnalyzeChipChanges_DistributionScenario(t *testing.T) {
	// 高位成本大涨（10->15），低位几乎不动（8->8.2），峰上移且集中度发散
	snapshots := []model.ChipSnapshot{
		{
			TradeDate: "20240101",
			Cost5:     7.5, Cost15: 8.0, Cost50: 9.0, Cost85: 10.0, Cost95: 10.5,
			WeightAvg: 9.0,
		},
		{
			TradeDate: "20240201",
			Cost5:     7.6, Cost15: 8.2, Cost50: 11.0, Cost85: 15.0, Cost95: 16.0,
			WeightAvg: 12.0,
		},
	}
	a := AnalyzeChipChanges(snapshots, 0)
	if a == nil {
		t.Fatal("expected analysis")
	}
	if a.PeakAnalysis.Direction != "上移" {
		t.Errorf("peak direction = %s, want 上移", a.PeakAnalysis.Direction)
	}
	if a.MainForce.Score > -3 {
		t.Errorf("score = %d, want <= -3", a.MainForce.Score)
	}
	if a.MainForce.Judgment != "获利出逃" {
		t.Errorf("judgment = %s, want 获利出逃", a.MainForce.Judgment)
	}
	if a.MainForce.Confidence != "高" {
		t.Errorf("confidence = %s, want 高", a.MainForce.Confidence)
	}
}

func TestAnalyzeChipChanges_FallingHighCostIsNotDistribution(t *testing.T) {
	// 峰缓慢上移但85分位成本实际下降（10->9.9），15分位降得更多（9->8）。
	// 高位成本没有上升，不应触发获利出逃信号
	snapshots := []model.ChipSnapshot{
		{
			TradeDate: "20240101",
			Cost15:    9.0, Cost50: 9.2, Cost85: 10.0, Cost95: 10.5,
			WeightAvg: 9.5,
		},
		{
			TradeDate: "20240201",
			Cost15:    8.0, Cost50: 9.3, Cost85: 9.9, Cost95: 10.2,
			WeightAvg: 9.6,
		},
	}
	a := AnalyzeChipChanges(snapshots, 0)
	if a == nil {
		t.Fatal("expected analysis")
	}
	if a.PeakAnalysis.Direction != "上移" {
		t.Fatalf("peak direction = %s, want 上移", a.PeakAnalysis.Direction)
	}
	for _, s := range a.MainForce.Signals {
		if strings.Contains(s, "获利出逃") {
			t.Errorf("unexpected distribution signal: %s", s)
		}
	}
	if a.MainForce.Score != 0 {
		t.Errorf("score = %d, want 0", a.MainForce.Score)
	}
	if a.MainForce.Judgment != "震荡整理" {
		t.Errorf("judgment = %s, want 震荡整理", a.MainForce.Judgment)
	}
}

func TestAnalyzeChipChanges_CostDeltas(t *testing.T) {
	snapshots := []model.ChipSnapshot{
		{TradeDate: "20240101", Cost50: 10.0, WeightAvg: 10.0},
		{TradeDate: "20240201", Cost50: 11.0, WeightAvg: 10.5},
	}
	a := AnalyzeChipChanges(snapshots, 0)
	mid, ok := a.CostChanges["cost_50pct"]
	if !ok {
		t.Fatal("expected cost_50pct change")
	}
	if mid.Delta != 1.0 {
		t.Errorf("delta = %f, want 1.0", mid.Delta)
	}
	if mid.DeltaPct != 10.0 {
		t.Errorf("delta_pct = %f, want 10.0", mid.DeltaPct)
	}
	// 5分位两端都缺失，不应出现在结果里
	if _, ok := a.CostChanges["cost_5pct"]; ok {
		t.Error("cost_5pct with missing endpoints should be skipped")
	}
}

func TestAnalyzePeak_SpeedClassification(t *testing.T) {
	tests := []struct {
		name      string
		wavgDelta float64
		midDelta  float64
		direction string
		speed     string
	}{
		{"fast upward", 2.0, 1.0, "上移", "快速"},
		{"slow upward", 1.0, 1.0, "上移", "缓慢"},
		{"fast downward", -2.0, -1.0, "下移", "快速"},
		{"oscillating", 1.0, -1.0, "震荡", "不稳定"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := map[string]model.CostChange{
				"weight_avg": {Delta: tt.wavgDelta},
				"cost_50pct": {Delta: tt.midDelta},
			}
			pa := analyzePeak(changes)
			if pa.Direction != tt.direction {
				t.Errorf("direction = %s, want %s", pa.Direction, tt.direction)
			}
			if pa.Speed != tt.speed {
				t.Errorf("speed = %s, want %s", pa.Speed, tt.speed)
			}
		})
	}
}

func TestConcentrationLevel_Boundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{5, "高"},
		{9.99, "高"},
		{10, "中"},
		{30, "中"},
		{30.01, "低"},
		{60, "低"},
	}
	for _, tt := range tests {
		if got := concentrationLevel(tt.pct); got != tt.want {
			t.Errorf("concentrationLevel(%.2f) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestScoreMainForce_NeutralConsolidation(t *testing.T) {
	snapshots := []model.ChipSnapshot{
		{TradeDate: "20240101", Cost5: 9, Cost15: 9.5, Cost50: 10, Cost85: 11, Cost95: 11.5, WeightAvg: 10},
		{TradeDate: "20240201", Cost5: 9, Cost15: 9.5, Cost50: 10, Cost85: 11, Cost95: 11.5, WeightAvg: 10},
	}
	a := AnalyzeChipChanges(snapshots, 0)
	if a.MainForce.Judgment != "震荡整理" {
		t.Errorf("flat window judgment = %s, want 震荡整理", a.MainForce.Judgment)
	}
	if a.MainForce.Confidence != "低" {
		t.Errorf("confidence = %s, want 低", a.MainForce.Confidence)
	}
}
