// Package unified 是分析端统一的数据入口：组合数据源管理器、交易日解析
// 与各专项取数逻辑，输出带哨兵字段的分析级结果，任何取数失败都不上抛。
package unified

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"stock-research-backend/internal/datasource"
	"stock-research-backend/internal/model"
)

// Access 统一数据访问门面
// 每次调用独立取数，不跨调用缓存行情数据
type Access struct {
	manager *datasource.Manager
	now     func() time.Time
	dataDir string
}

// Option Access可选配置
type Option func(*Access)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(a *Access) { a.now = now }
}

// WithDataDir 公告PDF等落盘目录
func WithDataDir(dir string) Option {
	return func(a *Access) { a.dataDir = dir }
}

func NewAccess(manager *datasource.Manager, opts ...Option) *Access {
	a := &Access{
		manager: manager,
		now:     time.Now,
		dataDir: "data",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResolveTradeDate 对外暴露的交易日解析，analysisDate为空表示实时模式
func (a *Access) ResolveTradeDate(analysisDate string) string {
	return resolveTradeDate(a.now(), analysisDate)
}

// GetStockData 历史日线（标准化后），所有数据源失败返回nil
func (a *Access) GetStockData(symbol, startDate, endDate string) []model.Bar {
	bars, err := a.manager.GetStockHistData(symbol, startDate, endDate, "qfq")
	if err != nil {
		return nil
	}
	return bars
}

// GetFinancialData 财务报表，reportType ∈ {income, balance, cashflow}
func (a *Access) GetFinancialData(symbol, reportType string) *model.Table {
	table, err := a.manager.GetFinancialData(symbol, reportType)
	if err != nil {
		return nil
	}
	return table
}

// GetStockInfo 聚合个股概览。按固定顺序逐级补全字段：
// tushare估值与日线 -> 东财明细 -> 实时行情（仅实时模式）-> 30日K线兜底。
// 字段缺失保持"N/A"，单项失败不影响整体返回。
func (a *Access) GetStockInfo(symbol, analysisDate string) *model.StockInfo {
	info := model.NewStockInfo(symbol)
	tradeDate := a.ResolveTradeDate(analysisDate)
	info.TradeDate = tradeDate
	if analysisDate != "" {
		info.AnalysisMode = "historical"
	}

	// 基本信息（名称/行业/市场），管理器内部自带降级
	basic := a.manager.GetStockBasicInfo(symbol)
	if basic.Name != "未知" {
		info.Name = basic.Name
	}
	if basic.Industry != "未知" {
		info.Industry = basic.Industry
	}
	if basic.Market != "未知" {
		info.Market = basic.Market
	}
	if basic.Source != "" {
		info.DataSource = basic.Source
	}

	// tushare估值字段与指定日行情
	a.enrichFromTushare(info, symbol, tradeDate)

	// 东财补余
	a.enrichFromEastMoney(info, symbol)

	// 实时行情覆盖只在实时模式下做，避免把"历史某日"与"此刻"混在一起
	if analysisDate == "" {
		if q, err := a.manager.GetRealtimeQuotes(symbol); err == nil {
			info.CurrentPrice = formatFloat(q.Price)
			info.ChangePercent = formatFloat(q.ChangePercent)
			if q.Volume > 0 {
				info.Volume = formatFloat(q.Volume)
			}
			if q.Amount > 0 {
				info.Amount = formatFloat(q.Amount)
			}
			info.DataSource = q.Source
		}
	}

	// 价格仍缺失时，从30日K线窗口推
	if info.CurrentPrice == model.NA {
		end, _ := time.ParseInLocation("20060102", tradeDate, a.now().Location())
		start := end.AddDate(0, 0, -30).Format("20060102")
		if bars := a.GetStockData(symbol, start, tradeDate); len(bars) > 0 {
			last := bars[len(bars)-1]
			info.CurrentPrice = formatFloat(last.Close)
			if info.Volume == model.NA && last.Volume > 0 {
				info.Volume = formatFloat(last.Volume)
			}
		}
	}

	// Beta与52周区间仅对A股做最终补全
	if datasource.IsAShareCode(symbol) {
		if info.Beta == model.NA {
			if beta, ok := a.GetBetaCoefficient(symbol, DefaultBetaIndex, DefaultBetaDays); ok {
				info.Beta = fmt.Sprintf("%.4f", beta)
			}
		}
		if info.High52w == model.NA {
			if r := a.GetWeek52HighLow(symbol); r.Success {
				info.High52w = formatFloat(r.High)
				info.Low52w = formatFloat(r.Low)
				info.PositionPct52w = fmt.Sprintf("%.2f", r.PositionPercent)
			}
		}
	}

	return info
}

// enrichFromTushare daily_basic估值 + daily行情（精确日无行时向前最多找4天）
func (a *Access) enrichFromTushare(info *model.StockInfo, symbol, tradeDate string) {
	ts := a.manager.Tushare()
	if ts == nil {
		return
	}
	tsCode := datasource.ConvertToTsCode(symbol)

	if table, err := ts.DailyBasic(tsCode, tradeDate); err == nil && !table.Empty() {
		setIfNA(&info.PE, table.Get(0, "pe"))
		setIfNA(&info.PB, table.Get(0, "pb"))
		setIfNA(&info.TurnoverRate, table.Get(0, "turnover_rate"))
		// total_mv单位万元，换算为元
		if mv := parseFloat(table.Get(0, "total_mv")); mv > 0 {
			info.TotalMarketCap = fmt.Sprintf("%.0f", mv*10000)
		}
		info.DataSource = "tushare"
	} else if err != nil {
		log.Printf("[WARN][Unified] tushare每日指标失败: %v", err)
	}

	end, perr := time.ParseInLocation("20060102", tradeDate, a.now().Location())
	if perr != nil {
		return
	}
	start := end.AddDate(0, 0, -4).Format("20060102")
	table, err := ts.Daily(tsCode, start, tradeDate)
	if err != nil || table.Empty() {
		return
	}
	// 优先取精确日期的行，否则取窗口内最近一行
	row := 0
	for i := range table.Rows {
		if table.Get(i, "trade_date") == tradeDate {
			row = i
			break
		}
	}
	if price := parseFloat(table.Get(row, "close")); price > 0 {
		info.CurrentPrice = formatFloat(price)
		info.ChangePercent = table.Get(row, "pct_chg")
		if vol := parseFloat(table.Get(row, "vol")); vol > 0 {
			info.Volume = formatFloat(vol * 100)
		}
		if amt := parseFloat(table.Get(row, "amount")); amt > 0 {
			info.Amount = formatFloat(amt * 1000)
		}
	}
}

// enrichFromEastMoney 东财补余：估值与市值字段
func (a *Access) enrichFromEastMoney(info *model.StockInfo, symbol string) {
	if info.PE != model.NA && info.PB != model.NA && info.TotalMarketCap != model.NA {
		return
	}
	em := a.manager.EastMoney()
	if em == nil {
		return
	}
	pe, pb, turnover, err := em.ValuationFields(symbol)
	if err != nil {
		log.Printf("[WARN][Unified] 东财估值字段失败: %v", err)
		return
	}
	if info.PE == model.NA && pe != 0 {
		info.PE = formatFloat(pe)
	}
	if info.PB == model.NA && pb != 0 {
		info.PB = formatFloat(pb)
	}
	if info.TurnoverRate == model.NA && turnover != 0 {
		info.TurnoverRate = formatFloat(turnover)
	}
}

// ChipDistributionResult 筹码分布结果，DataSuccess=false时Error说明原因
type ChipDistributionResult struct {
	DataSuccess    bool                      `json:"data_success"`
	Error          string                    `json:"error,omitempty"`
	Symbol         string                    `json:"symbol"`
	TradeDate      string                    `json:"trade_date"`
	Snapshots      []model.ChipSnapshot      `json:"chip_data,omitempty"`
	Levels         []model.ChipLevel         `json:"chip_levels,omitempty"`
	ChangeAnalysis *model.ChipChangeAnalysis `json:"change_analysis,omitempty"`
	Summary        map[string]string         `json:"summary,omitempty"`
}

// GetChipDistributionData 30日筹码分布窗口 + 指定日的每价位明细。
// 仅支持A股；明细在精确日为空时向前最多试5个交易日。
func (a *Access) GetChipDistributionData(symbol, tradeDate string, currentPrice float64, analysisDate string) *ChipDistributionResult {
	if !datasource.IsAShareCode(symbol) {
		return &ChipDistributionResult{Symbol: symbol, Error: "仅支持A股的筹码分布数据"}
	}
	ts := a.manager.Tushare()
	if ts == nil {
		return &ChipDistributionResult{Symbol: symbol, Error: "筹码数据需要配置TUSHARE_TOKEN"}
	}
	if tradeDate == "" {
		tradeDate = a.ResolveTradeDate(analysisDate)
	}
	result := &ChipDistributionResult{Symbol: symbol, TradeDate: tradeDate}
	tsCode := datasource.ConvertToTsCode(symbol)

	end, perr := time.ParseInLocation("20060102", tradeDate, a.now().Location())
	if perr != nil {
		result.Error = "交易日期格式错误"
		return result
	}
	start := end.AddDate(0, 0, -30).Format("20060102")

	snaps, err := ts.CyqPerf(tsCode, start, tradeDate)
	if err != nil {
		log.Printf("[WARN][Unified] 筹码分布统计失败: %v", err)
	} else {
		result.Snapshots = snaps
	}

	// 每价位明细，空结果时向前回溯
	day := end
	for i := 0; i <= 5; i++ {
		levels, lerr := ts.CyqChips(tsCode, day.Format("20060102"))
		if lerr == nil && len(levels) > 0 {
			result.Levels = levels
			break
		}
		day = day.AddDate(0, 0, -1)
	}

	if len(result.Snapshots) == 0 && len(result.Levels) == 0 {
		result.Error = "未获取到筹码数据"
		return result
	}
	result.DataSuccess = true

	if len(result.Snapshots) >= 2 {
		result.ChangeAnalysis = AnalyzeChipChanges(result.Snapshots, currentPrice)
	}
	result.Summary = a.chipSummary(result)
	return result
}

// chipSummary 人读摘要
func (a *Access) chipSummary(r *ChipDistributionResult) map[string]string {
	summary := map[string]string{}
	if len(r.Snapshots) == 0 {
		return summary
	}
	latest := r.Snapshots[len(r.Snapshots)-1]
	if pct, ok := rangePctOf(latest); ok {
		summary["concentration"] = fmt.Sprintf("筹码集中度%s（85/15分位价差为50分位的%.1f%%）", concentrationLevel(pct), pct)
	}
	if latest.Cost15 > 0 && latest.Cost85 > 0 {
		summary["cost_range"] = fmt.Sprintf("主要成本区间 %.2f - %.2f 元", latest.Cost15, latest.Cost85)
	}
	if latest.HisLow > 0 && latest.HisHigh > 0 {
		summary["historical_range"] = fmt.Sprintf("历史成本区间 %.2f - %.2f 元", latest.HisLow, latest.HisHigh)
	}
	if r.ChangeAnalysis != nil {
		summary["main_force"] = fmt.Sprintf("%s（置信度%s，得分%d）",
			r.ChangeAnalysis.MainForce.Judgment, r.ChangeAnalysis.MainForce.Confidence, r.ChangeAnalysis.MainForce.Score)
	}
	return summary
}

func rangePctOf(s model.ChipSnapshot) (float64, bool) {
	return rangePct(&s)
}

// SectorFundFlowResult 行业资金流向结果
type SectorFundFlowResult struct {
	Success   bool         `json:"success"`
	Industry  string       `json:"industry"`
	TradeDate string       `json:"trade_date"`
	Matched   bool         `json:"matched"` // 是否精确匹配到行业行
	Flow      *model.Table `json:"flow,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// GetSectorFundFlow 个股所属行业的资金流向。
// 当日无数据回退前一交易日；行业未精确匹配时整表返回由调用方解读。
func (a *Access) GetSectorFundFlow(symbol string) *SectorFundFlowResult {
	result := &SectorFundFlowResult{}
	basic := a.manager.GetStockBasicInfo(symbol)
	result.Industry = basic.Industry

	ts := a.manager.Tushare()
	if ts == nil {
		result.Error = "行业资金流向需要配置TUSHARE_TOKEN"
		return result
	}

	day := a.ResolveTradeDate("")
	var table *model.Table
	for i := 0; i < 2; i++ {
		t, err := ts.MoneyflowIndThs(day)
		if err == nil && !t.Empty() {
			table = t
			result.TradeDate = day
			break
		}
		// 当日可能尚未发布，回退一天
		d, perr := time.ParseInLocation("20060102", day, a.now().Location())
		if perr != nil {
			break
		}
		day = prevTradingDay(d, 7).Format("20060102")
	}
	if table == nil {
		// 行业口径无数据时退而取概念板块口径，整表返回
		if t, err := ts.MoneyflowCntThs(a.ResolveTradeDate("")); err == nil && !t.Empty() {
			result.Success = true
			result.Flow = t
			return result
		}
		result.Error = "未获取到行业资金流向数据"
		return result
	}
	result.Success = true

	if result.Industry != "未知" && result.Industry != "" {
		for i := range table.Rows {
			if table.Get(i, "industry") == result.Industry {
				result.Matched = true
				result.Flow = &model.Table{
					Columns: table.Columns,
					Rows:    [][]string{table.Rows[i]},
					Source:  table.Source,
				}
				return result
			}
		}
	}
	// 未匹配到精确行业，返回整表
	result.Flow = table
	return result
}

// ETFDataResult ETF行情结果
type ETFDataResult struct {
	Success bool        `json:"success"`
	Symbol  string      `json:"symbol"`
	Bars    []model.Bar `json:"bars,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GetETFData ETF日线：tushare fund_daily优先，东财K线兜底
func (a *Access) GetETFData(symbol string, days int) *ETFDataResult {
	if days <= 0 {
		days = 60
	}
	result := &ETFDataResult{Symbol: symbol}
	now := a.now()
	start := now.AddDate(0, 0, -days*2).Format("20060102")
	end := now.Format("20060102")

	if ts := a.manager.Tushare(); ts != nil {
		table, err := ts.FundDaily(datasource.ConvertToTsCode(symbol), start, end)
		if err == nil && !table.Empty() {
			bars := make([]model.Bar, 0, len(table.Rows))
			for i := range table.Rows {
				bars = append(bars, model.Bar{
					Date:   table.Get(i, "trade_date"),
					Open:   parseFloat(table.Get(i, "open")),
					High:   parseFloat(table.Get(i, "high")),
					Low:    parseFloat(table.Get(i, "low")),
					Close:  parseFloat(table.Get(i, "close")),
					Volume: parseFloat(table.Get(i, "vol")) * 100,
					Amount: parseFloat(table.Get(i, "amount")) * 1000,
				})
			}
			result.Success = true
			result.Bars = sortBars(bars)
			return result
		}
		if err != nil {
			log.Printf("[WARN][Unified] tushare基金日线失败: %v", err)
		}
	}

	em := a.manager.EastMoney()
	if em == nil {
		result.Error = "未获取到ETF数据"
		return result
	}
	bars, err := em.HistBars(symbol, start, end, "qfq")
	if err != nil || len(bars) == 0 {
		result.Error = "未获取到ETF数据"
		return result
	}
	result.Success = true
	result.Bars = bars
	return result
}

// --- 小工具 ---

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// setIfNA 目标仍是N/A且新值非空时填入
func setIfNA(dst *string, value string) {
	if *dst == model.NA && value != "" {
		*dst = value
	}
}

// sortBars 按日期升序排列并去重，同一日期保留先出现的行
func sortBars(bars []model.Bar) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	out := bars[:0]
	for i := range bars {
		if i > 0 && bars[i].Date == bars[i-1].Date {
			continue
		}
		out = append(out, bars[i])
	}
	return out
}
