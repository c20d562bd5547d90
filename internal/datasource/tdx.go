package datasource

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"stock-research-backend/internal/model"
)

// TDXClient 本地通达信行情服务客户端
// 该服务返回价格单位为厘（1/1000元）、成交量单位为手（100股），
// 此处统一换算为元和股
type TDXClient struct {
	base string
	http *http.Client
}

// NewTDXClient base为空时返回nil，调用链按"数据源未配置"跳过
func NewTDXClient(base string, transport http.RoundTripper) *TDXClient {
	if base == "" {
		return nil
	}
	client := &http.Client{Timeout: 10 * time.Second}
	if transport != nil {
		client.Transport = transport
	}
	return &TDXClient{base: strings.TrimRight(base, "/"), http: client}
}

func (c *TDXClient) Name() string { return "local" }

func (c *TDXClient) get(path string, params url.Values) (gjson.Result, error) {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.http.Get(u)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	root := gjson.ParseBytes(body)
	// 服务端约定：code=0 成功，code=100 带数据的警告
	code := root.Get("code")
	if code.Exists() && code.Int() != 0 && code.Int() != 100 {
		return gjson.Result{}, fmt.Errorf("本地行情服务返回错误码 %d: %s", code.Int(), root.Get("msg").String())
	}
	return root.Get("data"), nil
}

const milliYuan = 1000.0 // 价格单位换算
const lotShares = 100.0  // 成交量单位换算

// HistBars 历史日线，start/end格式YYYYMMDD
func (c *TDXClient) HistBars(symbol, start, end, adjust string) ([]model.Bar, error) {
	params := url.Values{}
	params.Set("code", symbol)
	params.Set("type", "day")
	if adjust != "" {
		params.Set("adjust", adjust)
	}
	if start != "" {
		params.Set("start_date", start)
	}
	if end != "" {
		params.Set("end_date", end)
	}
	data, err := c.get("/api/kline-history", params)
	if err != nil {
		return nil, err
	}
	list := data.Get("List")
	if !list.Exists() {
		list = data.Get("list")
	}
	var bars []model.Bar
	list.ForEach(func(_, item gjson.Result) bool {
		date := item.Get("Date").String()
		if date == "" {
			date = item.Get("date").String()
		}
		bars = append(bars, model.Bar{
			Date:   strings.ReplaceAll(date, "-", ""),
			Open:   item.Get("Open").Float() / milliYuan,
			High:   item.Get("High").Float() / milliYuan,
			Low:    item.Get("Low").Float() / milliYuan,
			Close:  item.Get("Close").Float() / milliYuan,
			Volume: item.Get("Volume").Float() * lotShares,
			Amount: item.Get("Amount").Float() / milliYuan,
		})
		return true
	})
	return sortBarsByDate(bars), nil
}

// RealtimeQuote 单只股票实时行情
func (c *TDXClient) RealtimeQuote(symbol string) (*model.Quote, error) {
	params := url.Values{}
	params.Set("code", symbol)
	data, err := c.get("/api/quote", params)
	if err != nil {
		return nil, err
	}
	first := data.Get("List.0")
	if !first.Exists() {
		first = data.Get("list.0")
	}
	if !first.Exists() {
		return nil, fmt.Errorf("本地行情服务无 %s 的行情数据", symbol)
	}
	k := first.Get("K")
	price := k.Get("Close").Float() / milliYuan
	preClose := first.Get("PreClose").Float() / milliYuan
	q := &model.Quote{
		Symbol:   symbol,
		Price:    price,
		Open:     k.Get("Open").Float() / milliYuan,
		High:     k.Get("High").Float() / milliYuan,
		Low:      k.Get("Low").Float() / milliYuan,
		PreClose: preClose,
		Volume:   k.Get("Volume").Float() * lotShares,
		Amount:   k.Get("Amount").Float() / milliYuan,
		Source:   c.Name(),
	}
	// 服务端不直接给涨跌幅，按昨收推算
	if preClose > 0 {
		q.ChangePercent = (price - preClose) / preClose * 100
	}
	if q.Price <= 0 {
		return nil, fmt.Errorf("本地行情服务返回无效价格")
	}
	return q, nil
}

// CodeList 交易所代码表，exchange ∈ {sh, sz, bj, all}
func (c *TDXClient) CodeList(exchange string) ([]model.Stock, error) {
	params := url.Values{}
	if exchange != "" && exchange != "all" {
		params.Set("exchange", exchange)
	}
	data, err := c.get("/api/codes", params)
	if err != nil {
		return nil, err
	}
	list := data.Get("List")
	if !list.Exists() {
		list = data.Get("list")
	}
	var stocks []model.Stock
	list.ForEach(func(_, item gjson.Result) bool {
		code := item.Get("Code").String()
		if code == "" {
			code = item.Get("code").String()
		}
		name := item.Get("Name").String()
		if name == "" {
			name = item.Get("name").String()
		}
		if code != "" {
			stocks = append(stocks, model.Stock{Code: code, Name: name, Market: strings.ToUpper(exchange)})
		}
		return true
	})
	return stocks, nil
}

// sortBarsByDate 按日期升序排列并去重，同一日期保留先出现的行
func sortBarsByDate(bars []model.Bar) []model.Bar {
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
