// Package datasource 把多个行情数据源编排成固定优先级的降级调用链。
package datasource

import (
	"fmt"
	"log"
	"os"
	"time"

	"stock-research-backend/internal/model"
	"stock-research-backend/internal/netopt"
	"stock-research-backend/internal/recorder"
)

// HistBarsProvider 历史日线能力
type HistBarsProvider interface {
	Name() string
	HistBars(symbol, start, end, adjust string) ([]model.Bar, error)
}

// BasicInfoProvider 基本信息能力
type BasicInfoProvider interface {
	Name() string
	BasicInfo(symbol string) (*model.BasicInfo, error)
}

// QuoteProvider 实时行情能力
type QuoteProvider interface {
	Name() string
	RealtimeQuote(symbol string) (*model.Quote, error)
}

// FinancialProvider 财务报表能力
type FinancialProvider interface {
	Name() string
	FinancialData(symbol, reportType string) (*model.Table, error)
}

// Manager 数据源管理器：按固定优先级逐个尝试，单次失败只记日志不上抛
type Manager struct {
	net *netopt.Optimizer
	rec recorder.Recorder

	hist  []HistBarsProvider
	basic []BasicInfoProvider
	quote []QuoteProvider
	fin   []FinancialProvider

	tdx       *TDXClient
	tushare   *TushareClient
	eastmoney *EastMoneyClient
}

// NewManager 按环境变量装配数据源。
// 未配置的源（缺token、缺地址）直接不进调用链，而不是尝试后失败。
func NewManager(net *netopt.Optimizer, rec recorder.Recorder) *Manager {
	if rec == nil {
		rec = recorder.Noop{}
	}
	transport := net.Transport()

	m := &Manager{
		net:       net,
		rec:       rec,
		tdx:       NewTDXClient(os.Getenv("TDX_API_BASE"), transport),
		tushare:   NewTushareClient(os.Getenv("TUSHARE_TOKEN"), transport),
		eastmoney: NewEastMoneyClient(transport),
	}

	// 历史日线: 本地 -> tushare -> 东财
	if m.tdx != nil {
		m.hist = append(m.hist, m.tdx)
		m.quote = append(m.quote, m.tdx)
		log.Println("[INFO][DataSource] 本地行情服务已启用")
	} else {
		log.Println("[INFO][DataSource] 未配置TDX_API_BASE，跳过本地行情服务")
	}
	if m.tushare != nil {
		m.hist = append(m.hist, m.tushare)
		m.basic = append(m.basic, m.tushare)
		m.quote = append(m.quote, m.tushare)
		m.fin = append(m.fin, m.tushare)
		log.Println("[INFO][DataSource] Tushare数据源初始化成功")
	} else {
		log.Println("[INFO][DataSource] 未配置Tushare Token，将仅使用免费数据源")
	}
	m.hist = append(m.hist, m.eastmoney)
	m.basic = append(m.basic, m.eastmoney)
	m.quote = append(m.quote, m.eastmoney)
	m.fin = append(m.fin, m.eastmoney)

	return m
}

// NewManagerWithProviders 测试用构造：显式注入各能力的调用链
func NewManagerWithProviders(net *netopt.Optimizer, rec recorder.Recorder,
	hist []HistBarsProvider, basic []BasicInfoProvider, quote []QuoteProvider, fin []FinancialProvider) *Manager {
	if rec == nil {
		rec = recorder.Noop{}
	}
	return &Manager{net: net, rec: rec, hist: hist, basic: basic, quote: quote, fin: fin}
}

// Tushare 返回tushare客户端，未配置为nil
func (m *Manager) Tushare() *TushareClient { return m.tushare }

// EastMoney 返回东财客户端，测试构造下可能为nil
func (m *Manager) EastMoney() *EastMoneyClient { return m.eastmoney }

// TDX 返回本地行情客户端，未配置为nil
func (m *Manager) TDX() *TDXClient { return m.tdx }

func (m *Manager) record(capability, symbol, provider string, rows int, err error, started time.Time) {
	attempt := &recorder.FetchAttempt{
		Capability: capability,
		Symbol:     symbol,
		Provider:   provider,
		Success:    err == nil,
		Rows:       rows,
		ElapsedMS:  time.Since(started).Milliseconds(),
	}
	if err != nil {
		attempt.ErrMsg = err.Error()
	}
	if recErr := m.rec.RecordFetch(attempt); recErr != nil {
		log.Printf("[WARN][DataSource] 写入调用流水失败: %v", recErr)
	}
}

// applyProxy 每次数据源尝试前套用代理环境，restore必须在尝试结束后调用
func (m *Manager) applyProxy() func() {
	if m.net == nil {
		return func() {}
	}
	return m.net.Apply()
}

// GetStockHistData 历史日线，固定顺序尝试，首个非空结果获胜
// 所有数据源失败时返回错误，调用方按哨兵处理
func (m *Manager) GetStockHistData(symbol, startDate, endDate, adjust string) ([]model.Bar, error) {
	if endDate == "" {
		endDate = time.Now().Format("20060102")
	}
	for _, p := range m.hist {
		restore := m.applyProxy()
		started := time.Now()
		bars, err := p.HistBars(symbol, startDate, endDate, adjust)
		restore()
		m.record("hist_bars", symbol, p.Name(), len(bars), err, started)
		if err != nil {
			log.Printf("[WARN][DataSource] %s 获取 %s 历史数据失败: %v", p.Name(), symbol, err)
			continue
		}
		if len(bars) == 0 {
			log.Printf("[WARN][DataSource] %s 返回 %s 的历史数据为空", p.Name(), symbol)
			continue
		}
		log.Printf("[INFO][DataSource] %s 成功获取 %s 的 %d 条历史数据", p.Name(), symbol, len(bars))
		return bars, nil
	}
	log.Printf("[ERROR][DataSource] 所有数据源均未能获取 %s 的历史数据", symbol)
	return nil, fmt.Errorf("所有数据源均获取失败")
}

// GetStockBasicInfo 基本信息，永不返回nil，未解析字段保持"未知"
func (m *Manager) GetStockBasicInfo(symbol string) *model.BasicInfo {
	for _, p := range m.basic {
		restore := m.applyProxy()
		started := time.Now()
		info, err := p.BasicInfo(symbol)
		restore()
		rows := 0
		if info != nil {
			rows = 1
		}
		m.record("basic_info", symbol, p.Name(), rows, err, started)
		if err != nil {
			log.Printf("[WARN][DataSource] %s 获取 %s 基本信息失败: %v", p.Name(), symbol, err)
			continue
		}
		if info == nil || info.Name == "" || info.Name == "未知" {
			continue
		}
		return info
	}
	return model.NewBasicInfo(symbol)
}

// GetRealtimeQuotes 实时行情，本地 -> tushare(按品种选接口) -> 东财
func (m *Manager) GetRealtimeQuotes(symbol string) (*model.Quote, error) {
	for _, p := range m.quote {
		restore := m.applyProxy()
		started := time.Now()
		q, err := p.RealtimeQuote(symbol)
		restore()
		rows := 0
		if q != nil {
			rows = 1
		}
		m.record("realtime_quote", symbol, p.Name(), rows, err, started)
		if err != nil {
			log.Printf("[WARN][DataSource] %s 获取 %s 实时行情失败: %v", p.Name(), symbol, err)
			continue
		}
		if q == nil || q.Price <= 0 {
			continue
		}
		return q, nil
	}
	return nil, fmt.Errorf("所有数据源均获取失败")
}

// GetFinancialData 财务报表，report_type ∈ {income, balance, cashflow}
// 保持各数据源的原始列结构，不做跨源归一化
func (m *Manager) GetFinancialData(symbol, reportType string) (*model.Table, error) {
	for _, p := range m.fin {
		restore := m.applyProxy()
		started := time.Now()
		table, err := p.FinancialData(symbol, reportType)
		restore()
		rows := 0
		if table != nil {
			rows = len(table.Rows)
		}
		m.record("financial", symbol, p.Name(), rows, err, started)
		if err != nil {
			log.Printf("[WARN][DataSource] %s 获取 %s 财务数据失败: %v", p.Name(), symbol, err)
			continue
		}
		if table.Empty() {
			continue
		}
		return table, nil
	}
	return nil, fmt.Errorf("所有数据源均获取失败")
}

// IsMarginTradable 是否两融标的：当日融资融券明细有记录即是
// tushare未配置时无法判断，返回false
func (m *Manager) IsMarginTradable(symbol, tradeDate string) bool {
	if m.tushare == nil {
		return false
	}
	restore := m.applyProxy()
	defer restore()
	table, err := m.tushare.MarginDetail(ConvertToTsCode(symbol), tradeDate)
	if err != nil {
		log.Printf("[WARN][DataSource] 查询 %s 两融明细失败: %v", symbol, err)
		return false
	}
	return !table.Empty()
}
