package model

// NA 字段级缺失哨兵，调用方按哨兵判断而非捕获错误
const NA = "N/A"

// StockInfo 聚合后的个股概览，所有字段缺失时为 "N/A"
type StockInfo struct {
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Industry         string `json:"industry"`
	Market           string `json:"market"`
	CurrentPrice     string `json:"current_price"`
	ChangePercent    string `json:"change_percent"`
	Volume           string `json:"volume"`
	Amount           string `json:"amount"`
	TurnoverRate     string `json:"turnover_rate"`
	PE               string `json:"pe"`
	PB               string `json:"pb"`
	TotalMarketCap   string `json:"total_market_cap"`
	High52w          string `json:"high_52w"`
	Low52w           string `json:"low_52w"`
	PositionPct52w   string `json:"position_pct_52w"`
	Beta             string `json:"beta"`
	TradeDate        string `json:"trade_date"`
	AnalysisMode     string `json:"analysis_mode"` // live / historical
	DataSource       string `json:"data_source"`
}

// NewStockInfo 全字段置为N/A的个股概览
func NewStockInfo(symbol string) *StockInfo {
	return &StockInfo{
		Symbol:         symbol,
		Name:           NA,
		Industry:       NA,
		Market:         NA,
		CurrentPrice:   NA,
		ChangePercent:  NA,
		Volume:         NA,
		Amount:         NA,
		TurnoverRate:   NA,
		PE:             NA,
		PB:             NA,
		TotalMarketCap: NA,
		High52w:        NA,
		Low52w:         NA,
		PositionPct52w: NA,
		Beta:           NA,
		TradeDate:      NA,
		AnalysisMode:   "live",
		DataSource:     NA,
	}
}

// Week52Range 52周高低点区间
type Week52Range struct {
	Success         bool    `json:"success"`
	High            float64 `json:"high_52w"`
	HighDate        string  `json:"high_date"`
	Low             float64 `json:"low_52w"`
	LowDate         string  `json:"low_date"`
	Current         float64 `json:"current_price"`
	PositionPercent float64 `json:"position_percent"`
	Error           string  `json:"error,omitempty"`
}

// ResearchReport 券商研报条目
type ResearchReport struct {
	Date      string `json:"date"`
	Title     string `json:"title"`
	Org       string `json:"org"`
	Rating    string `json:"rating"`
	Analyst   string `json:"analyst,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Sentiment int    `json:"sentiment"` // 内容关键词打分，正数偏多
}

// NewsItem 新闻条目
type NewsItem struct {
	Title  string `json:"title"`
	Time   string `json:"time"`
	Source string `json:"source"`
}

// Announcement 上市公司公告条目
type Announcement struct {
	Date      string `json:"date"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	PDFPath   string `json:"pdf_path,omitempty"` // 本地缓存路径，下载失败为空
	Source    string `json:"source"`
}
