package datasource

import (
	"fmt"
	"testing"

	"stock-research-backend/internal/model"
)

type fakeHistProvider struct {
	name  string
	bars  []model.Bar
	err   error
	calls int
}

func (f *fakeHistProvider) Name() string { return f.name }

func (f *fakeHistProvider) HistBars(symbol, start, end, adjust string) ([]model.Bar, error) {
	f.calls++
	return f.bars, f.err
}

type fakeBasicProvider struct {
	name  string
	info  *model.BasicInfo
	err   error
	calls int
}

func (f *fakeBasicProvider) Name() string { return f.name }

func (f *fakeBasicProvider) BasicInfo(symbol string) (*model.BasicInfo, error) {
	f.calls++
	return f.info, f.err
}

func TestGetStockHistData_FallbackOrdering(t *testing.T) {
	want := []model.Bar{{Date: "20240105", Close: 10.5, Volume: 1000}}
	p1 := &fakeHistProvider{name: "local", err: fmt.Errorf("connection refused")}
	p2 := &fakeHistProvider{name: "tushare", bars: want}
	p3 := &fakeHistProvider{name: "eastmoney", bars: []model.Bar{{Date: "20240105", Close: 99}}}

	m := NewManagerWithProviders(nil, nil, []HistBarsProvider{p1, p2, p3}, nil, nil, nil)
	got, err := m.GetStockHistData("600519", "20240101", "20240131", "qfq")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Close != 10.5 {
		t.Errorf("expected provider 2's data, got %+v", got)
	}
	if p1.calls != 1 || p2.calls != 1 {
		t.Errorf("providers 1 and 2 should be called once each, got %d/%d", p1.calls, p2.calls)
	}
	if p3.calls != 0 {
		t.Errorf("provider 3 must not be invoked after provider 2 succeeds, got %d calls", p3.calls)
	}
}

func TestGetStockHistData_EmptyResultFallsThrough(t *testing.T) {
	p1 := &fakeHistProvider{name: "local", bars: nil} // 空结果视为失败
	p2 := &fakeHistProvider{name: "eastmoney", bars: []model.Bar{{Date: "20240105", Close: 8}}}

	m := NewManagerWithProviders(nil, nil, []HistBarsProvider{p1, p2}, nil, nil, nil)
	got, err := m.GetStockHistData("000001", "", "", "qfq")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Close != 8 {
		t.Errorf("expected fallback data, got %+v", got)
	}
}

func TestGetStockHistData_AllFail(t *testing.T) {
	p1 := &fakeHistProvider{name: "local", err: fmt.Errorf("timeout")}
	p2 := &fakeHistProvider{name: "eastmoney", err: fmt.Errorf("bad response")}

	m := NewManagerWithProviders(nil, nil, []HistBarsProvider{p1, p2}, nil, nil, nil)
	got, err := m.GetStockHistData("000001", "", "", "qfq")
	if err == nil {
		t.Error("expected sentinel error when all providers fail")
	}
	if got != nil {
		t.Errorf("expected nil bars, got %+v", got)
	}
}

func TestGetStockBasicInfo_NeverNil(t *testing.T) {
	p1 := &fakeBasicProvider{name: "tushare", err: fmt.Errorf("no token")}
	p2 := &fakeBasicProvider{name: "eastmoney", err: fmt.Errorf("rate limited")}

	m := NewManagerWithProviders(nil, nil, nil, []BasicInfoProvider{p1, p2}, nil, nil)
	info := m.GetStockBasicInfo("600519")
	if info == nil {
		t.Fatal("basic info must never be nil")
	}
	if info.Name != "未知" {
		t.Errorf("expected placeholder name, got %q", info.Name)
	}
	if info.Symbol != "600519" {
		t.Errorf("symbol = %q", info.Symbol)
	}
}

func TestGetStockBasicInfo_FallbackWins(t *testing.T) {
	p1 := &fakeBasicProvider{name: "tushare", err: fmt.Errorf("down")}
	p2 := &fakeBasicProvider{name: "eastmoney", info: &model.BasicInfo{
		Symbol: "600519", Name: "贵州茅台", Industry: "白酒", Market: "上海", Source: "eastmoney",
	}}

	m := NewManagerWithProviders(nil, nil, nil, []BasicInfoProvider{p1, p2}, nil, nil)
	info := m.GetStockBasicInfo("600519")
	if info.Name != "贵州茅台" {
		t.Errorf("expected fallback provider's name, got %q", info.Name)
	}
	if info.Source != "eastmoney" {
		t.Errorf("source = %q", info.Source)
	}
}
