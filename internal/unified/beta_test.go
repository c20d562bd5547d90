package unified

import (
	"fmt"
	"math"
	"testing"

	"stock-research-backend/internal/model"
)

func TestComputeBeta_LinearSeries(t *testing.T) {
	// stock = 2 * index，无噪声，Beta应为2.0
	index := make([]float64, 100)
	stock := make([]float64, 100)
	for i := range index {
		index[i] = math.Sin(float64(i)) * 1.5
		stock[i] = 2 * index[i]
	}
	beta, ok := computeBeta(stock, index)
	if !ok {
		t.Fatal("expected beta to be computable")
	}
	if math.Abs(beta-2.0) > 1e-9 {
		t.Errorf("beta = %f, want 2.0", beta)
	}
}

func TestComputeBeta_TooFewObservations(t *testing.T) {
	index := make([]float64, 49)
	stock := make([]float64, 49)
	for i := range index {
		index[i] = float64(i%7) - 3
		stock[i] = index[i] * 1.2
	}
	if _, ok := computeBeta(stock, index); ok {
		t.Error("expected failure with fewer than 50 observations")
	}
}

func TestComputeBeta_ZeroVarianceIndex(t *testing.T) {
	index := make([]float64, 100)
	stock := make([]float64, 100)
	for i := range stock {
		stock[i] = float64(i % 5)
		index[i] = 0.5 // 恒定指数，方差为零
	}
	if _, ok := computeBeta(stock, index); ok {
		t.Error("expected failure with zero-variance index")
	}
}

func TestComputeBeta_MismatchedLengthAligned(t *testing.T) {
	index := make([]float64, 120)
	stock := make([]float64, 80)
	for i := range index {
		index[i] = math.Cos(float64(i))
	}
	for i := range stock {
		stock[i] = 1.5 * index[len(index)-len(stock)+i]
	}
	beta, ok := computeBeta(stock, index)
	if !ok {
		t.Fatal("expected beta to be computable on overlap")
	}
	if math.Abs(beta-1.5) > 1e-9 {
		t.Errorf("beta = %f, want 1.5", beta)
	}
}

func TestWeek52FromBars(t *testing.T) {
	var bars []model.Bar
	for i := 0; i < 250; i++ {
		price := 50.0 + float64(i%100)*0.3
		bars = append(bars, model.Bar{
			Date:  fmt.Sprintf("2024%04d", i+101),
			High:  price + 1,
			Low:   price - 1,
			Close: price,
		})
	}
	// 注入已知极值
	bars[40].High = 120
	bars[70].Low = 30
	bars[len(bars)-1].Close = 75 // (120+30)/2 = 75，正好在中点

	r := week52FromBars(bars)
	if !r.Success {
		t.Fatal("expected success")
	}
	if r.High != 120 {
		t.Errorf("high = %f, want 120", r.High)
	}
	if r.Low != 30 {
		t.Errorf("low = %f, want 30", r.Low)
	}
	if r.HighDate != bars[40].Date || r.LowDate != bars[70].Date {
		t.Errorf("extreme dates wrong: %s / %s", r.HighDate, r.LowDate)
	}
	if math.Abs(r.PositionPercent-50.0) > 0.01 {
		t.Errorf("position = %f, want 50.0", r.PositionPercent)
	}
}

func TestWeek52FromBars_DegenerateRange(t *testing.T) {
	var bars []model.Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, model.Bar{Date: fmt.Sprintf("2024010%d", i), High: 10, Low: 10, Close: 10})
	}
	r := week52FromBars(bars)
	if !r.Success {
		t.Fatal("expected success")
	}
	if r.PositionPercent != 50.0 {
		t.Errorf("degenerate range position = %f, want 50.0", r.PositionPercent)
	}
}

func TestPctChanges(t *testing.T) {
	bars := []model.Bar{
		{Close: 100}, {Close: 110}, {Close: 99},
	}
	got := pctChanges(bars)
	if len(got) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(got))
	}
	if math.Abs(got[0]-10.0) > 1e-9 {
		t.Errorf("first return = %f, want 10.0", got[0])
	}
	if math.Abs(got[1]-(-10.0)) > 1e-9 {
		t.Errorf("second return = %f, want -10.0", got[1])
	}
}
