package unified

import (
	"fmt"
	"testing"
	"time"

	"stock-research-backend/internal/datasource"
	"stock-research-backend/internal/model"
)

type stubHist struct {
	bars []model.Bar
	err  error
}

func (s *stubHist) Name() string { return "stub" }
func (s *stubHist) HistBars(symbol, start, end, adjust string) ([]model.Bar, error) {
	return s.bars, s.err
}

type stubBasic struct {
	info *model.BasicInfo
	err  error
}

func (s *stubBasic) Name() string { return "stub" }
func (s *stubBasic) BasicInfo(symbol string) (*model.BasicInfo, error) {
	return s.info, s.err
}

type stubQuote struct {
	quote *model.Quote
	err   error
}

func (s *stubQuote) Name() string { return "stub" }
func (s *stubQuote) RealtimeQuote(symbol string) (*model.Quote, error) {
	return s.quote, s.err
}

func newTestAccess(hist []datasource.HistBarsProvider, basic []datasource.BasicInfoProvider,
	quote []datasource.QuoteProvider, now time.Time) *Access {
	m := datasource.NewManagerWithProviders(nil, nil, hist, basic, quote, nil)
	return NewAccess(m, WithClock(func() time.Time { return now }))
}

func TestGetStockInfo_AllSourcesFail(t *testing.T) {
	failErr := fmt.Errorf("网络错误")
	a := newTestAccess(
		[]datasource.HistBarsProvider{&stubHist{err: failErr}},
		[]datasource.BasicInfoProvider{&stubBasic{err: failErr}},
		[]datasource.QuoteProvider{&stubQuote{err: failErr}},
		time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local),
	)
	info := a.GetStockInfo("600519", "")
	if info == nil {
		t.Fatal("GetStockInfo must never return nil")
	}
	if info.Name != model.NA || info.CurrentPrice != model.NA {
		t.Errorf("expected N/A placeholders, got name=%s price=%s", info.Name, info.CurrentPrice)
	}
	if info.TradeDate != "20240110" {
		t.Errorf("trade date = %s, want 20240110", info.TradeDate)
	}
	if info.AnalysisMode != "live" {
		t.Errorf("analysis mode = %s, want live", info.AnalysisMode)
	}
}

func TestGetStockInfo_BasicInfoFallback(t *testing.T) {
	basicInfo := model.NewBasicInfo("600519")
	basicInfo.Name = "贵州茅台"
	basicInfo.Industry = "白酒"
	basicInfo.Source = "stub"

	a := newTestAccess(
		[]datasource.HistBarsProvider{&stubHist{err: fmt.Errorf("不可用")}},
		[]datasource.BasicInfoProvider{
			&stubBasic{err: fmt.Errorf("不可用")},
			&stubBasic{info: basicInfo},
		},
		[]datasource.QuoteProvider{&stubQuote{err: fmt.Errorf("不可用")}},
		time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local),
	)
	info := a.GetStockInfo("600519", "")
	if info.Name != "贵州茅台" {
		t.Errorf("name = %s, want 贵州茅台 (from second provider)", info.Name)
	}
	if info.Industry != "白酒" {
		t.Errorf("industry = %s, want 白酒", info.Industry)
	}
}

func TestGetStockInfo_HistoricalModeSkipsRealtime(t *testing.T) {
	quoteCalled := false
	q := &stubQuote{quote: &model.Quote{Symbol: "600519", Price: 1700}}
	wrapped := &countingQuote{inner: q, called: &quoteCalled}

	a := newTestAccess(
		[]datasource.HistBarsProvider{&stubHist{err: fmt.Errorf("不可用")}},
		[]datasource.BasicInfoProvider{&stubBasic{err: fmt.Errorf("不可用")}},
		[]datasource.QuoteProvider{wrapped},
		time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local),
	)
	info := a.GetStockInfo("600519", "20240105")
	if info.AnalysisMode != "historical" {
		t.Errorf("analysis mode = %s, want historical", info.AnalysisMode)
	}
	if quoteCalled {
		t.Error("realtime quote must not be fetched in historical mode")
	}
}

type countingQuote struct {
	inner  *stubQuote
	called *bool
}

func (c *countingQuote) Name() string { return c.inner.Name() }
func (c *countingQuote) RealtimeQuote(symbol string) (*model.Quote, error) {
	*c.called = true
	return c.inner.RealtimeQuote(symbol)
}

func TestGetStockInfo_RealtimeOverlay(t *testing.T) {
	a := newTestAccess(
		[]datasource.HistBarsProvider{&stubHist{err: fmt.Errorf("不可用")}},
		[]datasource.BasicInfoProvider{&stubBasic{err: fmt.Errorf("不可用")}},
		[]datasource.QuoteProvider{&stubQuote{quote: &model.Quote{
			Symbol: "600519", Price: 1688.5, ChangePercent: 1.23, Source: "stub",
		}}},
		time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local),
	)
	info := a.GetStockInfo("600519", "")
	if info.CurrentPrice != "1688.50" {
		t.Errorf("price = %s, want 1688.50", info.CurrentPrice)
	}
	if info.ChangePercent != "1.23" {
		t.Errorf("change percent = %s, want 1.23", info.ChangePercent)
	}
	if info.DataSource != "stub" {
		t.Errorf("data source = %s, want stub", info.DataSource)
	}
}

func TestGetChipDistributionData_Unsupported(t *testing.T) {
	a := newTestAccess(nil, nil, nil, time.Date(2024, 1, 10, 10, 0, 0, 0, time.Local))

	r := a.GetChipDistributionData("AAPL", "", 0, "")
	if r.DataSuccess {
		t.Error("non A-share symbol must not succeed")
	}
	if r.Error == "" {
		t.Error("expected error message for unsupported symbol")
	}

	// A股但无tushare配置
	r = a.GetChipDistributionData("600519", "", 0, "")
	if r.DataSuccess {
		t.Error("chip data without tushare must not succeed")
	}
}

func TestGetNewsData_NoSource(t *testing.T) {
	a := newTestAccess(nil, nil, nil, time.Now())
	r := a.GetNewsData("600519")
	if r.Success {
		t.Error("expected failure without eastmoney client")
	}
}

func TestGetRiskData_RequiresTushare(t *testing.T) {
	a := newTestAccess(nil, nil, nil, time.Now())
	r := a.GetRiskData("600519", "")
	if r.Success {
		t.Error("expected failure without tushare client")
	}
	r = a.GetRiskData("US.AAPL", "")
	if r.Success || r.Error == "" {
		t.Error("expected unsupported-symbol error for non A-share")
	}
}

func TestResolveTradeDate_UsesInjectedClock(t *testing.T) {
	// 2024-01-13是周六，应回退到周五
	a := newTestAccess(nil, nil, nil, time.Date(2024, 1, 13, 12, 0, 0, 0, time.Local))
	if got := a.ResolveTradeDate(""); got != "20240112" {
		t.Errorf("trade date = %s, want 20240112", got)
	}
	if got := a.ResolveTradeDate("20240107"); got != "20240105" {
		t.Errorf("historical trade date = %s, want 20240105", got)
	}
}

func TestGetETFData_NoSources(t *testing.T) {
	a := newTestAccess(nil, nil, nil, time.Now())
	r := a.GetETFData("510300", 30)
	if r.Success {
		t.Error("expected failure without any data source")
	}
}
