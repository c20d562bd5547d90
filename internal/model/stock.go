package model

// Stock 股票代码表条目
type Stock struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market"` // SH: 上海, SZ: 深圳, BJ: 北京
}

// Bar 标准化后的日线数据
// 无论哪个数据源返回，成交量单位为股、成交额单位为元
type Bar struct {
	Date   string  `json:"date"` // YYYYMMDD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount"`
}

// Quote 实时行情快照
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreClose      float64 `json:"pre_close"`
	Volume        float64 `json:"volume"`
	Amount        float64 `json:"amount"`
	Timestamp     string  `json:"timestamp,omitempty"`
	Source        string  `json:"source"`
}

// BasicInfo 股票基本信息，未解析到的字段保持"未知"
type BasicInfo struct {
	Symbol               string `json:"symbol"`
	Name                 string `json:"name"`
	Industry             string `json:"industry"`
	Market               string `json:"market"`
	Area                 string `json:"area,omitempty"`
	ListDate             string `json:"list_date,omitempty"`
	MarketCap            string `json:"market_cap,omitempty"`
	CirculatingMarketCap string `json:"circulating_market_cap,omitempty"`
	Source               string `json:"source"`
}

// NewBasicInfo 带默认占位符的基本信息
func NewBasicInfo(symbol string) *BasicInfo {
	return &BasicInfo{
		Symbol:   symbol,
		Name:     "未知",
		Industry: "未知",
		Market:   "未知",
	}
}
