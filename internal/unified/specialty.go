package unified

import (
	"log"
	"time"

	"stock-research-backend/internal/datasource"
	"stock-research-backend/internal/model"
)

// benchmarkIndices 市场情绪观察的重点指数
var benchmarkIndices = []struct {
	Code string
	Name string
}{
	{"000001.SH", "上证综指"},
	{"399001.SZ", "深证成指"},
	{"000016.SH", "上证50"},
	{"000905.SH", "中证500"},
	{"399005.SZ", "中小板指"},
	{"399006.SZ", "创业板指"},
}

const marginHistoryDays = 5

// FundFlowResult 个股资金流向结果
type FundFlowResult struct {
	Success   bool         `json:"data_success"`
	Symbol    string       `json:"symbol"`
	TradeDate string       `json:"trade_date,omitempty"`
	Source    string       `json:"source,omitempty"`
	Flow      *model.Table `json:"flow,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// GetFundFlowData 个股资金流向：tushare moneyflow优先，东财资金流兜底。
// 指定日无数据时向前回退一个交易日再试。
func (a *Access) GetFundFlowData(symbol, analysisDate string) *FundFlowResult {
	result := &FundFlowResult{Symbol: symbol}
	if !datasource.IsAShareCode(symbol) {
		result.Error = "资金流向数据仅支持A股"
		return result
	}

	if ts := a.manager.Tushare(); ts != nil {
		tsCode := datasource.ConvertToTsCode(symbol)
		day := a.ResolveTradeDate(analysisDate)
		for i := 0; i < 2; i++ {
			table, err := ts.Moneyflow(tsCode, day)
			if err == nil && !table.Empty() {
				result.Success = true
				result.TradeDate = day
				result.Source = "tushare"
				result.Flow = table
				return result
			}
			if err != nil {
				log.Printf("[WARN][Unified] tushare资金流向失败: %v", err)
			}
			d, perr := time.ParseInLocation("20060102", day, a.now().Location())
			if perr != nil {
				break
			}
			day = prevTradingDay(d, 7).Format("20060102")
		}
	}

	em := a.manager.EastMoney()
	if em == nil {
		result.Error = "未获取到资金流向数据"
		return result
	}
	table, err := em.FundFlowDaily(symbol)
	if err != nil || table.Empty() {
		if err != nil {
			log.Printf("[WARN][Unified] 东财资金流向失败: %v", err)
		}
		result.Error = "未获取到资金流向数据"
		return result
	}
	result.Success = true
	result.Source = "eastmoney"
	result.Flow = table
	return result
}

// IndexMetric 单个指数的当日指标
type IndexMetric struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Close     float64 `json:"close"`
	PctChg    float64 `json:"pct_chg"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
	TradeDate string  `json:"trade_date"`
}

// MarketSentimentResult 市场情绪：重点指数指标 + 个股两融历史
type MarketSentimentResult struct {
	Success        bool          `json:"data_success"`
	Symbol         string        `json:"symbol"`
	TradeDate      string        `json:"trade_date"`
	IndexMetrics   []IndexMetric `json:"index_metrics,omitempty"`
	MarginTradable bool          `json:"margin_tradable"`
	MarginHistory  *model.Table  `json:"margin_history,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// GetMarketSentimentData 市场情绪数据。
// 指数指标与两融历史各自尽力取数，任一部分成功即整体成功。
func (a *Access) GetMarketSentimentData(symbol, analysisDate string) *MarketSentimentResult {
	tradeDate := a.ResolveTradeDate(analysisDate)
	result := &MarketSentimentResult{Symbol: symbol, TradeDate: tradeDate}

	ts := a.manager.Tushare()
	if ts == nil {
		result.Error = "市场情绪数据需要配置TUSHARE_TOKEN"
		return result
	}

	for _, idx := range benchmarkIndices {
		table, err := ts.IndexDaily(idx.Code, tradeDate, tradeDate)
		if err != nil {
			log.Printf("[WARN][Unified] 指数 %s 指标获取失败: %v", idx.Code, err)
			continue
		}
		if table.Empty() {
			continue
		}
		result.IndexMetrics = append(result.IndexMetrics, IndexMetric{
			Code:      idx.Code,
			Name:      idx.Name,
			Close:     parseFloat(table.Get(0, "close")),
			PctChg:    parseFloat(table.Get(0, "pct_chg")),
			Volume:    parseFloat(table.Get(0, "vol")) * 100,
			Amount:    parseFloat(table.Get(0, "amount")) * 1000,
			TradeDate: table.Get(0, "trade_date"),
		})
	}

	result.MarginTradable = a.manager.IsMarginTradable(symbol, tradeDate)
	if result.MarginTradable {
		result.MarginHistory = a.marginHistory(symbol, tradeDate, marginHistoryDays)
	}

	if len(result.IndexMetrics) == 0 && result.MarginHistory == nil {
		result.Error = "未获取到市场情绪数据"
		return result
	}
	result.Success = true
	return result
}

// marginHistory 最近N个交易日的两融明细，逐日查询合并为一张表
func (a *Access) marginHistory(symbol, tradeDate string, days int) *model.Table {
	ts := a.manager.Tushare()
	if ts == nil {
		return nil
	}
	tsCode := datasource.ConvertToTsCode(symbol)
	day, err := time.ParseInLocation("20060102", tradeDate, a.now().Location())
	if err != nil {
		return nil
	}

	var merged *model.Table
	for i := 0; i < days; i++ {
		table, terr := ts.MarginDetail(tsCode, day.Format("20060102"))
		if terr != nil {
			log.Printf("[WARN][Unified] 两融明细 %s 获取失败: %v", day.Format("20060102"), terr)
		} else if !table.Empty() {
			if merged == nil {
				merged = &model.Table{Columns: table.Columns, Source: table.Source}
			}
			merged.Rows = append(merged.Rows, table.Rows...)
		}
		day = prevTradingDay(day, 7)
	}
	return merged
}

// NewsResult 新闻与公告快讯
type NewsResult struct {
	Success       bool                 `json:"data_success"`
	Symbol        string               `json:"symbol"`
	News          []model.NewsItem     `json:"news,omitempty"`
	Announcements []model.Announcement `json:"announcements,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// GetNewsData 媒体新闻 + 公告标题，两路独立取数
func (a *Access) GetNewsData(symbol string) *NewsResult {
	result := &NewsResult{Symbol: symbol}
	em := a.manager.EastMoney()
	if em == nil {
		result.Error = "新闻数据源不可用"
		return result
	}

	news, err := em.MediaNews(symbol, 20)
	if err != nil {
		log.Printf("[WARN][Unified] 媒体新闻获取失败: %v", err)
	} else {
		result.News = news
	}
	anns, err := em.Announcements(symbol, 10)
	if err != nil {
		log.Printf("[WARN][Unified] 公告快讯获取失败: %v", err)
	} else {
		result.Announcements = anns
	}

	if len(result.News) == 0 && len(result.Announcements) == 0 {
		result.Error = "未获取到新闻数据"
		return result
	}
	result.Success = true
	return result
}

// GetStockNews GetNewsData的别名，兼容旧路由
func (a *Access) GetStockNews(symbol string) *NewsResult {
	return a.GetNewsData(symbol)
}

// RiskResult 风险数据：限售解禁与重要股东增减持
type RiskResult struct {
	Success      bool         `json:"data_success"`
	Symbol       string       `json:"symbol"`
	ShareFloat   *model.Table `json:"share_float,omitempty"`
	HolderTrades *model.Table `json:"holder_trades,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// 风险数据的前瞻与回看窗口（自然日）
const (
	riskLookAheadDays = 180 // 未来解禁计划
	riskLookBackDays  = 180 // 历史增减持
)

// GetRiskData 限售解禁计划（向后看）与股东增减持记录（向前看）
func (a *Access) GetRiskData(symbol, analysisDate string) *RiskResult {
	result := &RiskResult{Symbol: symbol}
	if !datasource.IsAShareCode(symbol) {
		result.Error = "风险数据仅支持A股"
		return result
	}
	ts := a.manager.Tushare()
	if ts == nil {
		result.Error = "风险数据需要配置TUSHARE_TOKEN"
		return result
	}

	anchor := a.now()
	if analysisDate != "" {
		if d, err := time.ParseInLocation("20060102", analysisDate, a.now().Location()); err == nil {
			anchor = d
		}
	}
	tsCode := datasource.ConvertToTsCode(symbol)

	floatStart := anchor.Format("20060102")
	floatEnd := anchor.AddDate(0, 0, riskLookAheadDays).Format("20060102")
	if table, err := ts.ShareFloat(tsCode, floatStart, floatEnd); err != nil {
		log.Printf("[WARN][Unified] 限售解禁查询失败: %v", err)
	} else if !table.Empty() {
		result.ShareFloat = table
	}

	tradeStart := anchor.AddDate(0, 0, -riskLookBackDays).Format("20060102")
	tradeEnd := anchor.Format("20060102")
	if table, err := ts.HolderTrade(tsCode, tradeStart, tradeEnd); err != nil {
		log.Printf("[WARN][Unified] 股东增减持查询失败: %v", err)
	} else if !table.Empty() {
		result.HolderTrades = table
	}

	if result.ShareFloat == nil && result.HolderTrades == nil {
		result.Error = "未获取到风险数据"
		return result
	}
	result.Success = true
	return result
}
