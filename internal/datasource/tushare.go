package datasource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"stock-research-backend/internal/model"
)

const tushareAPIURL = "http://api.tushare.pro"

// TushareClient tushare pro HTTP接口客户端
type TushareClient struct {
	token string
	http  *http.Client
}

// NewTushareClient token为空时返回nil，调用链按"数据源未配置"跳过
func NewTushareClient(token string, transport http.RoundTripper) *TushareClient {
	if token == "" {
		return nil
	}
	client := &http.Client{Timeout: 15 * time.Second}
	if transport != nil {
		client.Transport = transport
	}
	return &TushareClient{token: token, http: client}
}

func (c *TushareClient) Name() string { return "tushare" }

// Query 通用接口调用，结果转为字符串表格
func (c *TushareClient) Query(apiName string, params map[string]string, fields string) (*model.Table, error) {
	reqBody := map[string]any{
		"api_name": apiName,
		"token":    c.token,
		"params":   params,
	}
	if fields != "" {
		reqBody["fields"] = fields
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(tushareAPIURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tushare %s 请求失败: %w", apiName, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	if code := root.Get("code").Int(); code != 0 {
		return nil, fmt.Errorf("tushare %s 返回错误码 %d: %s", apiName, code, root.Get("msg").String())
	}

	table := &model.Table{Source: c.Name()}
	root.Get("data.fields").ForEach(func(_, f gjson.Result) bool {
		table.Columns = append(table.Columns, f.String())
		return true
	})
	root.Get("data.items").ForEach(func(_, item gjson.Result) bool {
		row := make([]string, 0, len(table.Columns))
		item.ForEach(func(_, v gjson.Result) bool {
			if v.Type == gjson.Null {
				row = append(row, "")
			} else {
				row = append(row, v.String())
			}
			return true
		})
		table.Rows = append(table.Rows, row)
		return true
	})
	return table, nil
}

// Daily 日线行情
func (c *TushareClient) Daily(tsCode, start, end string) (*model.Table, error) {
	params := map[string]string{"ts_code": tsCode}
	if start != "" {
		params["start_date"] = start
	}
	if end != "" {
		params["end_date"] = end
	}
	return c.Query("daily", params, "")
}

// DailyBasic 每日指标（PE/PB/换手率/市值）
func (c *TushareClient) DailyBasic(tsCode, tradeDate string) (*model.Table, error) {
	return c.Query("daily_basic", map[string]string{"ts_code": tsCode, "trade_date": tradeDate},
		"ts_code,trade_date,close,turnover_rate,pe,pe_ttm,pb,total_mv,circ_mv")
}

// StockBasic 股票基础信息
func (c *TushareClient) StockBasic(tsCode string) (*model.Table, error) {
	return c.Query("stock_basic", map[string]string{"ts_code": tsCode},
		"ts_code,name,area,industry,market,list_date")
}

// IndexDaily 指数日线
func (c *TushareClient) IndexDaily(tsCode, start, end string) (*model.Table, error) {
	return c.Query("index_daily", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
}

// FundDaily 场内基金日线
func (c *TushareClient) FundDaily(tsCode, start, end string) (*model.Table, error) {
	params := map[string]string{"ts_code": tsCode}
	if start != "" {
		params["start_date"] = start
	}
	if end != "" {
		params["end_date"] = end
	}
	return c.Query("fund_daily", params, "")
}

// Income 利润表
func (c *TushareClient) Income(tsCode string) (*model.Table, error) {
	return c.Query("income", map[string]string{"ts_code": tsCode}, "")
}

// BalanceSheet 资产负债表
func (c *TushareClient) BalanceSheet(tsCode string) (*model.Table, error) {
	return c.Query("balancesheet", map[string]string{"ts_code": tsCode}, "")
}

// CashFlow 现金流量表
func (c *TushareClient) CashFlow(tsCode string) (*model.Table, error) {
	return c.Query("cashflow", map[string]string{"ts_code": tsCode}, "")
}

// CyqPerf 每日筹码分布统计（成本分位）
func (c *TushareClient) CyqPerf(tsCode, start, end string) ([]model.ChipSnapshot, error) {
	table, err := c.Query("cyq_perf", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
	if err != nil {
		return nil, err
	}
	snaps := make([]model.ChipSnapshot, 0, len(table.Rows))
	for i := range table.Rows {
		snaps = append(snaps, model.ChipSnapshot{
			TradeDate:  table.Get(i, "trade_date"),
			HisLow:     parseFloat(table.Get(i, "his_low")),
			HisHigh:    parseFloat(table.Get(i, "his_high")),
			Cost5:      parseFloat(table.Get(i, "cost_5pct")),
			Cost15:     parseFloat(table.Get(i, "cost_15pct")),
			Cost50:     parseFloat(table.Get(i, "cost_50pct")),
			Cost85:     parseFloat(table.Get(i, "cost_85pct")),
			Cost95:     parseFloat(table.Get(i, "cost_95pct")),
			WeightAvg:  parseFloat(table.Get(i, "weight_avg")),
			WinnerRate: parseFloat(table.Get(i, "winner_rate")),
		})
	}
	// tushare按日期倒序返回，统一转为升序
	if len(snaps) > 1 && snaps[0].TradeDate > snaps[len(snaps)-1].TradeDate {
		for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
			snaps[i], snaps[j] = snaps[j], snaps[i]
		}
	}
	return snaps, nil
}

// CyqChips 单日每价位筹码分布明细
func (c *TushareClient) CyqChips(tsCode, tradeDate string) ([]model.ChipLevel, error) {
	table, err := c.Query("cyq_chips", map[string]string{"ts_code": tsCode, "trade_date": tradeDate}, "")
	if err != nil {
		return nil, err
	}
	levels := make([]model.ChipLevel, 0, len(table.Rows))
	for i := range table.Rows {
		levels = append(levels, model.ChipLevel{
			TradeDate: table.Get(i, "trade_date"),
			Price:     parseFloat(table.Get(i, "price")),
			Percent:   parseFloat(table.Get(i, "percent")),
		})
	}
	return levels, nil
}

// MoneyflowIndThs 同花顺行业资金流向
func (c *TushareClient) MoneyflowIndThs(tradeDate string) (*model.Table, error) {
	return c.Query("moneyflow_ind_ths", map[string]string{"trade_date": tradeDate}, "")
}

// MoneyflowCntThs 同花顺概念板块资金流向
func (c *TushareClient) MoneyflowCntThs(tradeDate string) (*model.Table, error) {
	return c.Query("moneyflow_cnt_ths", map[string]string{"trade_date": tradeDate}, "")
}

// Moneyflow 个股资金流向
func (c *TushareClient) Moneyflow(tsCode, tradeDate string) (*model.Table, error) {
	return c.Query("moneyflow", map[string]string{"ts_code": tsCode, "trade_date": tradeDate}, "")
}

// ReportRC 券商研报
func (c *TushareClient) ReportRC(tsCode, start, end string) (*model.Table, error) {
	return c.Query("report_rc", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
}

// AnnsD 公告列表
func (c *TushareClient) AnnsD(tsCode, start, end string) (*model.Table, error) {
	return c.Query("anns_d", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
}

// ShareFloat 限售股解禁计划
func (c *TushareClient) ShareFloat(tsCode, start, end string) (*model.Table, error) {
	return c.Query("share_float", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
}

// HolderTrade 重要股东增减持记录
func (c *TushareClient) HolderTrade(tsCode, start, end string) (*model.Table, error) {
	return c.Query("stk_holdertrade", map[string]string{"ts_code": tsCode, "start_date": start, "end_date": end}, "")
}

// MarginDetail 融资融券明细，判断标的是否两融
func (c *TushareClient) MarginDetail(tsCode, tradeDate string) (*model.Table, error) {
	return c.Query("margin_detail", map[string]string{"ts_code": tsCode, "trade_date": tradeDate}, "")
}

// HistBars 标准化日线：vol手->股，amount千元->元
func (c *TushareClient) HistBars(symbol, start, end, adjust string) ([]model.Bar, error) {
	log.Printf("[Tushare] 正在获取 %s 的历史数据...", symbol)
	table, err := c.Daily(ConvertToTsCode(symbol), start, end)
	if err != nil {
		return nil, err
	}
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
	return sortBarsByDate(bars), nil
}

// BasicInfo 基础信息
func (c *TushareClient) BasicInfo(symbol string) (*model.BasicInfo, error) {
	log.Printf("[Tushare] 正在获取 %s 的基本信息...", symbol)
	table, err := c.StockBasic(ConvertToTsCode(symbol))
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, fmt.Errorf("tushare无 %s 的基础信息", symbol)
	}
	info := model.NewBasicInfo(symbol)
	info.Name = table.Get(0, "name")
	info.Industry = table.Get(0, "industry")
	info.Market = table.Get(0, "market")
	info.Area = table.Get(0, "area")
	info.ListDate = table.Get(0, "list_date")
	info.Source = c.Name()
	return info, nil
}

// RealtimeQuote 用当日日线近似实时行情；ETF走fund_daily
func (c *TushareClient) RealtimeQuote(symbol string) (*model.Quote, error) {
	log.Printf("[Tushare] 正在获取 %s 的实时行情...", symbol)
	today := time.Now().Format("20060102")
	tsCode := ConvertToTsCode(symbol)

	var table *model.Table
	var err error
	if LooksLikeETFCode(symbol) {
		table, err = c.FundDaily(tsCode, today, today)
	} else {
		table, err = c.Daily(tsCode, today, today)
	}
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, fmt.Errorf("tushare当日无 %s 的行情", symbol)
	}
	price := parseFloat(table.Get(0, "close"))
	preClose := parseFloat(table.Get(0, "pre_close"))
	q := &model.Quote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: parseFloat(table.Get(0, "pct_chg")),
		Open:          parseFloat(table.Get(0, "open")),
		High:          parseFloat(table.Get(0, "high")),
		Low:           parseFloat(table.Get(0, "low")),
		PreClose:      preClose,
		Volume:        parseFloat(table.Get(0, "vol")) * 100,
		Amount:        parseFloat(table.Get(0, "amount")) * 1000,
		Source:        c.Name(),
	}
	if q.ChangePercent == 0 && preClose > 0 {
		q.ChangePercent = (price - preClose) / preClose * 100
	}
	return q, nil
}

// FinancialData 财务报表，保持tushare原始列
func (c *TushareClient) FinancialData(symbol string, reportType string) (*model.Table, error) {
	log.Printf("[Tushare] 正在获取 %s 的财务数据(%s)...", symbol, reportType)
	tsCode := ConvertToTsCode(symbol)
	switch reportType {
	case "income":
		return c.Income(tsCode)
	case "balance":
		return c.BalanceSheet(tsCode)
	case "cashflow":
		return c.CashFlow(tsCode)
	default:
		return nil, fmt.Errorf("不支持的报表类型: %s", reportType)
	}
}
