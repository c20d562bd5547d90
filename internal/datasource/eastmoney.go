package datasource

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"stock-research-backend/internal/model"
)

// 东方财富接口地址
const (
	emKlineURL    = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	emQuoteURL    = "https://push2.eastmoney.com/api/qt/stock/get"
	emListURL     = "https://82.push2.eastmoney.com/api/qt/clist/get"
	emFundFlowURL = "https://push2.eastmoney.com/api/qt/stock/fflow/daykline/get"
	emNoticeURL   = "https://np-anotice-stock.eastmoney.com/api/security/ann"
	emReportURL   = "https://reportapi.eastmoney.com/report/list"
	emSearchURL   = "https://search-api-web.eastmoney.com/search/jsonp"
)

// 请求头（模拟浏览器）
const (
	emUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	emReferer   = "https://quote.eastmoney.com"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// EastMoneyClient 东方财富行情客户端，无需token，始终可用
type EastMoneyClient struct {
	http *http.Client
}

func NewEastMoneyClient(transport http.RoundTripper) *EastMoneyClient {
	client := &http.Client{Timeout: 15 * time.Second}
	if transport != nil {
		client.Transport = transport
	}
	return &EastMoneyClient{http: client}
}

func (c *EastMoneyClient) Name() string { return "eastmoney" }

// SecID 东财secid：沪市前缀1，深市/北交所前缀0
func SecID(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "5") || strings.HasPrefix(code, "9") {
		return "1." + code
	}
	return "0." + code
}

func (c *EastMoneyClient) get(rawURL string) (gjson.Result, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("User-Agent", emUserAgent)
	req.Header.Set("Referer", emReferer)

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("东方财富返回状态码 %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

// HistBars 历史日线。东财成交量单位为手，换算为股；成交额已是元
func (c *EastMoneyClient) HistBars(symbol, start, end, adjust string) ([]model.Bar, error) {
	log.Printf("[EastMoney] 正在获取 %s 的历史数据...", symbol)
	fqt := "1" // 前复权
	switch adjust {
	case "hfq":
		fqt = "2"
	case "":
		fqt = "0"
	}
	if start == "" {
		start = "0"
	}
	if end == "" {
		end = "20500101"
	}
	u := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57&klt=101&fqt=%s&beg=%s&end=%s",
		emKlineURL, SecID(symbol), fqt, start, end)
	root, err := c.get(u)
	if err != nil {
		return nil, err
	}

	var bars []model.Bar
	root.Get("data.klines").ForEach(func(_, line gjson.Result) bool {
		parts := strings.Split(line.String(), ",")
		if len(parts) < 7 {
			return true
		}
		bars = append(bars, model.Bar{
			Date:   strings.ReplaceAll(parts[0], "-", ""),
			Open:   parseFloat(parts[1]),
			Close:  parseFloat(parts[2]),
			High:   parseFloat(parts[3]),
			Low:    parseFloat(parts[4]),
			Volume: parseFloat(parts[5]) * 100,
			Amount: parseFloat(parts[6]),
		})
		return true
	})
	return sortBarsByDate(bars), nil
}

// quoteFields 单股行情字段：f43现价 f44最高 f45最低 f46今开 f47成交量(手)
// f48成交额 f57代码 f58名称 f60昨收 f170涨跌幅 f127行业 f116总市值 f117流通市值 f162市盈率 f167市净率 f168换手率
const quoteFields = "f43,f44,f45,f46,f47,f48,f57,f58,f60,f170,f127,f116,f117,f162,f167,f168"

func (c *EastMoneyClient) quoteRaw(symbol string) (gjson.Result, error) {
	u := fmt.Sprintf("%s?secid=%s&invt=2&fltt=2&fields=%s", emQuoteURL, SecID(symbol), quoteFields)
	root, err := c.get(u)
	if err != nil {
		return gjson.Result{}, err
	}
	data := root.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return gjson.Result{}, fmt.Errorf("东方财富无 %s 的行情数据", symbol)
	}
	return data, nil
}

// RealtimeQuote 实时行情
func (c *EastMoneyClient) RealtimeQuote(symbol string) (*model.Quote, error) {
	log.Printf("[EastMoney] 正在获取 %s 的实时行情...", symbol)
	data, err := c.quoteRaw(symbol)
	if err != nil {
		return nil, err
	}
	price := data.Get("f43").Float()
	preClose := data.Get("f60").Float()
	q := &model.Quote{
		Symbol:        symbol,
		Name:          data.Get("f58").String(),
		Price:         price,
		ChangePercent: data.Get("f170").Float(),
		Open:          data.Get("f46").Float(),
		High:          data.Get("f44").Float(),
		Low:           data.Get("f45").Float(),
		PreClose:      preClose,
		Volume:        data.Get("f47").Float() * 100,
		Amount:        data.Get("f48").Float(),
		Timestamp:     time.Now().Format("2006-01-02 15:04:05"),
		Source:        c.Name(),
	}
	if q.Price <= 0 {
		return nil, fmt.Errorf("东方财富返回无效价格")
	}
	if q.ChangePercent == 0 && preClose > 0 {
		q.ChangePercent = (price - preClose) / preClose * 100
	}
	return q, nil
}

// BasicInfo 从单股行情字段拼基本信息
func (c *EastMoneyClient) BasicInfo(symbol string) (*model.BasicInfo, error) {
	log.Printf("[EastMoney] 正在获取 %s 的基本信息...", symbol)
	data, err := c.quoteRaw(symbol)
	if err != nil {
		return nil, err
	}
	info := model.NewBasicInfo(symbol)
	if name := data.Get("f58").String(); name != "" {
		info.Name = name
	}
	if industry := data.Get("f127").String(); industry != "" {
		info.Industry = industry
	}
	switch {
	case strings.HasPrefix(symbol, "6"), strings.HasPrefix(symbol, "5"):
		info.Market = "上海"
	case strings.HasPrefix(symbol, "8"), strings.HasPrefix(symbol, "4"):
		info.Market = "北京"
	default:
		info.Market = "深圳"
	}
	if mv := data.Get("f116").Float(); mv > 0 {
		info.MarketCap = fmt.Sprintf("%.0f", mv)
	}
	if cmv := data.Get("f117").Float(); cmv > 0 {
		info.CirculatingMarketCap = fmt.Sprintf("%.0f", cmv)
	}
	info.Source = c.Name()
	return info, nil
}

// ValuationFields 估值字段（市盈率/市净率/换手率），用于概览兜底
func (c *EastMoneyClient) ValuationFields(symbol string) (pe, pb, turnover float64, err error) {
	data, err := c.quoteRaw(symbol)
	if err != nil {
		return 0, 0, 0, err
	}
	return data.Get("f162").Float(), data.Get("f167").Float(), data.Get("f168").Float(), nil
}

// FundFlowDaily 个股主力资金流向日线
// klines: 日期,主力净流入,小单,中单,大单,超大单(元),...
func (c *EastMoneyClient) FundFlowDaily(symbol string) (*model.Table, error) {
	u := fmt.Sprintf("%s?secid=%s&fields1=f1,f2,f3,f7&fields2=f51,f52,f53,f54,f55,f56&lmt=30",
		emFundFlowURL, SecID(symbol))
	root, err := c.get(u)
	if err != nil {
		return nil, err
	}
	table := &model.Table{
		Columns: []string{"date", "main_net", "small_net", "mid_net", "big_net", "huge_net"},
		Source:  c.Name(),
	}
	root.Get("data.klines").ForEach(func(_, line gjson.Result) bool {
		parts := strings.Split(line.String(), ",")
		if len(parts) < 6 {
			return true
		}
		table.Rows = append(table.Rows, parts[:6])
		return true
	})
	return table, nil
}

// Announcements 公告列表
func (c *EastMoneyClient) Announcements(symbol string, pageSize int) ([]model.Announcement, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	u := fmt.Sprintf("%s?sr=-1&page_size=%d&page_index=1&ann_type=A&stock_list=%s&f_node=0&s_node=0",
		emNoticeURL, pageSize, symbol)
	root, err := c.get(u)
	if err != nil {
		return nil, err
	}
	var anns []model.Announcement
	root.Get("data.list").ForEach(func(_, item gjson.Result) bool {
		date := item.Get("notice_date").String()
		if len(date) > 10 {
			date = date[:10]
		}
		artCode := item.Get("art_code").String()
		ann := model.Announcement{
			Date:   date,
			Title:  item.Get("title").String(),
			Source: c.Name(),
		}
		if artCode != "" {
			ann.URL = fmt.Sprintf("https://data.eastmoney.com/notices/detail/%s/%s.html", symbol, artCode)
		}
		anns = append(anns, ann)
		return true
	})
	return anns, nil
}

// ResearchReports 券商研报列表
func (c *EastMoneyClient) ResearchReports(symbol string, days int) ([]model.ResearchReport, error) {
	if days <= 0 {
		days = 180
	}
	end := time.Now()
	begin := end.AddDate(0, 0, -days)
	u := fmt.Sprintf("%s?industryCode=*&pageSize=50&industry=*&rating=*&ratingChange=*&beginTime=%s&endTime=%s&pageNo=1&qType=0&code=%s",
		emReportURL, begin.Format("2006-01-02"), end.Format("2006-01-02"), symbol)
	root, err := c.get(u)
	if err != nil {
		return nil, err
	}
	var reports []model.ResearchReport
	root.Get("data").ForEach(func(_, item gjson.Result) bool {
		date := item.Get("publishDate").String()
		if len(date) > 10 {
			date = date[:10]
		}
		reports = append(reports, model.ResearchReport{
			Date:    date,
			Title:   item.Get("title").String(),
			Org:     item.Get("orgSName").String(),
			Rating:  item.Get("emRatingName").String(),
			Analyst: item.Get("researcher").String(),
		})
		return true
	})
	return reports, nil
}

// emFinReports 数据中心财务报表reportName映射
var emFinReports = map[string]string{
	"income":   "RPT_DMSK_FN_INCOME",
	"balance":  "RPT_DMSK_FN_BALANCE",
	"cashflow": "RPT_DMSK_FN_CASHFLOW",
}

// FinancialData 财务报表兜底，保持东财原始列
func (c *EastMoneyClient) FinancialData(symbol string, reportType string) (*model.Table, error) {
	reportName, ok := emFinReports[reportType]
	if !ok {
		return nil, fmt.Errorf("不支持的报表类型: %s", reportType)
	}
	log.Printf("[EastMoney] 正在获取 %s 的财务数据(%s)...", symbol, reportType)
	u := fmt.Sprintf("https://datacenter-web.eastmoney.com/api/data/v1/get?reportName=%s&columns=ALL&pageSize=8&pageNumber=1&sortColumns=REPORT_DATE&sortTypes=-1&filter=(SECURITY_CODE=%%22%s%%22)",
		reportName, symbol)
	root, err := c.get(u)
	if err != nil {
		return nil, err
	}
	rows := root.Get("result.data")
	if !rows.Exists() || len(rows.Array()) == 0 {
		return nil, fmt.Errorf("东方财富无 %s 的财务数据", symbol)
	}
	table := &model.Table{Source: c.Name()}
	rows.Array()[0].ForEach(func(key, _ gjson.Result) bool {
		table.Columns = append(table.Columns, key.String())
		return true
	})
	rows.ForEach(func(_, item gjson.Result) bool {
		row := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			v := item.Get(col)
			if v.Type != gjson.Null {
				row[i] = v.String()
			}
		}
		table.Rows = append(table.Rows, row)
		return true
	})
	return table, nil
}

// StockList 全市场代码表（沪深主板/创业板/科创板）
func (c *EastMoneyClient) StockList() ([]model.Stock, error) {
	var stocks []model.Stock
	for page := 1; page <= 15; page++ {
		u := fmt.Sprintf("%s?pn=%d&pz=500&po=1&np=1&fltt=2&invt=2&fid=f12&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23&fields=f12,f14",
			emListURL, page)
		root, err := c.get(u)
		if err != nil {
			return stocks, err
		}
		diff := root.Get("data.diff")
		if !diff.Exists() || len(diff.Array()) == 0 {
			break
		}
		diff.ForEach(func(_, item gjson.Result) bool {
			code := item.Get("f12").String()
			market := "SZ"
			if strings.HasPrefix(code, "6") {
				market = "SH"
			}
			stocks = append(stocks, model.Stock{
				Code:   code,
				Name:   item.Get("f14").String(),
				Market: market,
			})
			return true
		})
		if len(diff.Array()) < 500 {
			break
		}
	}
	return stocks, nil
}

// MediaNews 个股媒体新闻（标题为主）
func (c *EastMoneyClient) MediaNews(symbol string, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}
	cb := fmt.Sprintf("jQuery%d_%d", time.Now().UnixNano(), time.Now().UnixMilli())
	paramBody := map[string]any{
		"uid":           "",
		"keyword":       strings.TrimSpace(symbol),
		"type":          []string{"cmsArticleWebOld"},
		"client":        "web",
		"clientType":    "web",
		"clientVersion": "curr",
		"params": map[string]any{
			"cmsArticleWebOld": map[string]any{
				"searchScope": "default",
				"sort":        "default",
				"pageIndex":   1,
				"pageSize":    limit,
				"preTag":      "<em>",
				"postTag":     "</em>",
			},
		},
	}
	paramJSON, _ := json.Marshal(paramBody)

	u, _ := url.Parse(emSearchURL)
	q := u.Query()
	q.Set("cb", cb)
	q.Set("param", string(paramJSON))
	u.RawQuery = q.Encode()

	req, _ := http.NewRequest(http.MethodGet, u.String(), nil)
	req.Header.Set("User-Agent", emUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(extractJSONPBody(body))
	var news []model.NewsItem
	root.Get("result.cmsArticleWebOld").ForEach(func(_, item gjson.Result) bool {
		t := strings.TrimSpace(item.Get("date").String())
		if len(t) >= 10 {
			t = t[:10]
		}
		source := strings.TrimSpace(item.Get("mediaName").String())
		if source == "" {
			source = "东方财富"
		}
		title := strings.TrimSpace(stripHTMLTags(item.Get("title").String()))
		if title == "" {
			return true
		}
		news = append(news, model.NewsItem{Title: title, Time: t, Source: source})
		return true
	})
	return news, nil
}

func extractJSONPBody(b []byte) []byte {
	s := string(b)
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if start < 0 || end < 0 || end <= start {
		return b
	}
	return []byte(s[start+1 : end])
}

func stripHTMLTags(s string) string {
	if strings.IndexByte(s, '<') < 0 {
		return s
	}
	return htmlTagRe.ReplaceAllString(s, "")
}
