package unified

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stock-research-backend/internal/datasource"
	"stock-research-backend/internal/model"
)

// 评级关键词分档，评级文本命中任一关键词即归入该档
var (
	buyRatings     = []string{"买入", "增持", "推荐", "强推"}
	neutralRatings = []string{"持有", "中性", "观望"}
	sellRatings    = []string{"卖出", "减持", "回避"}
)

// 研报内容情感词表与主题关键词
var (
	positiveWords = []string{"增长", "提升", "改善", "利好", "看好", "买入", "推荐", "机会", "优势"}
	negativeWords = []string{"下降", "下滑", "风险", "担忧", "卖出", "减持", "挑战", "困难"}

	commonKeywords = []string{
		"增长", "业绩", "盈利", "收入", "净利润", "EPS", "ROE", "估值",
		"买入", "持有", "推荐", "目标价", "风险", "机会", "前景",
		"行业", "市场", "竞争", "优势", "创新", "转型", "扩张",
	}
)

const (
	reportSummaryLimit = 500 // 摘要截断长度（按rune）
	maxKeyTopics       = 10
	sentimentRatio     = 1.5 // 正负信号数的压倒比例，超过才离开neutral
)

// RatingRatio 买入/中性/卖出占比（百分数，保留两位）
type RatingRatio struct {
	BuyRatio     float64 `json:"buy_ratio"`
	NeutralRatio float64 `json:"neutral_ratio"`
	SellRatio    float64 `json:"sell_ratio"`
}

// TargetPriceStats 目标价统计，Count为给出目标价的研报数
type TargetPriceStats struct {
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// ContentAnalysis 研报文本的关键词与情感统计
type ContentAnalysis struct {
	HasContent      bool     `json:"has_content"`
	ReportsWithText int      `json:"total_reports_with_content"`
	KeyTopics       []string `json:"key_topics"`
	Sentiment       string   `json:"sentiment"` // positive / neutral / negative
	PositiveSignals int      `json:"positive_signals"`
	NegativeSignals int      `json:"negative_signals"`
	SentimentScore  float64  `json:"sentiment_score"`
}

// LatestReport 最新一篇研报的关键字段
type LatestReport struct {
	Date        string  `json:"date"`
	Title       string  `json:"title"`
	Org         string  `json:"org"`
	Rating      string  `json:"rating"`
	TargetPrice float64 `json:"target_price,omitempty"`
}

// ResearchReportsResult 研报聚合结果
type ResearchReportsResult struct {
	Success            bool                   `json:"data_success"`
	Symbol             string                 `json:"symbol"`
	Source             string                 `json:"source,omitempty"`
	Reports            []model.ResearchReport `json:"reports,omitempty"`
	RatingDistribution map[string]int         `json:"rating_distribution,omitempty"`
	RatingRatio        *RatingRatio           `json:"rating_ratio,omitempty"`
	TargetPriceStats   *TargetPriceStats      `json:"target_price_stats,omitempty"`
	ContentAnalysis    *ContentAnalysis       `json:"content_analysis,omitempty"`
	LatestReport       *LatestReport          `json:"latest_report,omitempty"`
	Error              string                 `json:"error,omitempty"`
}

// GetResearchReportsData 券商研报：tushare report_rc优先，东财研报中心兜底。
// 按 日期+机构+标题 去重后做评级占比、目标价与文本情感统计。
func (a *Access) GetResearchReportsData(symbol string, days int) *ResearchReportsResult {
	if days <= 0 {
		days = 180
	}
	result := &ResearchReportsResult{Symbol: symbol}
	if !datasource.IsAShareCode(symbol) {
		result.Error = "研报数据仅支持A股"
		return result
	}

	var reports []model.ResearchReport
	var targetPrices []float64

	if ts := a.manager.Tushare(); ts != nil {
		now := a.now()
		start := now.AddDate(0, 0, -days).Format("20060102")
		end := now.Format("20060102")
		table, err := ts.ReportRC(datasource.ConvertToTsCode(symbol), start, end)
		if err != nil {
			log.Printf("[WARN][Unified] tushare研报查询失败: %v", err)
		} else if !table.Empty() {
			reports, targetPrices = reportsFromTushare(table)
			result.Source = "tushare"
		}
	}
	if len(reports) == 0 {
		em := a.manager.EastMoney()
		if em != nil {
			emReports, err := em.ResearchReports(symbol, days)
			if err != nil {
				log.Printf("[WARN][Unified] 东财研报查询失败: %v", err)
			} else if len(emReports) > 0 {
				reports = emReports
				result.Source = "eastmoney"
			}
		}
	}
	if len(reports) == 0 {
		result.Error = "未查询到研报数据"
		return result
	}

	reports = dedupeReports(reports)
	for i := range reports {
		reports[i].Sentiment = sentimentOf(reports[i].Summary)
	}
	result.Success = true
	result.Reports = reports
	result.RatingDistribution, result.RatingRatio = analyzeRatings(reports)
	result.TargetPriceStats = targetPriceStats(targetPrices)
	result.ContentAnalysis = analyzeReportContents(reportContents(reports))

	latest := reports[0]
	result.LatestReport = &LatestReport{
		Date:   latest.Date,
		Title:  latest.Title,
		Org:    latest.Org,
		Rating: latest.Rating,
	}
	if len(targetPrices) > 0 {
		result.LatestReport.TargetPrice = targetPrices[0]
	}
	return result
}

// reportsFromTushare report_rc行转研报条目，目标价与条目顺序保持一致（无目标价记0）
func reportsFromTushare(table *model.Table) ([]model.ResearchReport, []float64) {
	reports := make([]model.ResearchReport, 0, len(table.Rows))
	prices := make([]float64, 0, len(table.Rows))
	for i := range table.Rows {
		r := model.ResearchReport{
			Date:    table.Get(i, "report_date"),
			Title:   table.Get(i, "report_title"),
			Org:     table.Get(i, "org_name"),
			Rating:  table.Get(i, "rating"),
			Analyst: table.Get(i, "author_name"),
			Summary: truncateRunes(table.Get(i, "content"), reportSummaryLimit),
		}
		price := parseFloat(table.Get(i, "max_price"))
		if price == 0 {
			price = parseFloat(table.Get(i, "min_price"))
		}
		reports = append(reports, r)
		prices = append(prices, price)
	}
	return reports, prices
}

// dedupeReports 同一日期+机构+标题只保留首次出现（保持输入顺序）
func dedupeReports(reports []model.ResearchReport) []model.ResearchReport {
	seen := make(map[string]bool, len(reports))
	out := reports[:0]
	for _, r := range reports {
		key := r.Date + "|" + r.Org + "|" + r.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// analyzeRatings 评级分布与三档占比
func analyzeRatings(reports []model.ResearchReport) (map[string]int, *RatingRatio) {
	dist := map[string]int{}
	var buy, neutral, sell int
	for _, r := range reports {
		if r.Rating == "" {
			continue
		}
		dist[r.Rating]++
		switch {
		case matchesAny(r.Rating, buyRatings):
			buy++
		case matchesAny(r.Rating, neutralRatings):
			neutral++
		case matchesAny(r.Rating, sellRatings):
			sell++
		}
	}
	total := float64(len(reports))
	if total == 0 {
		return dist, &RatingRatio{}
	}
	round2 := func(v float64) float64 { return math.Round(v*100) / 100 }
	return dist, &RatingRatio{
		BuyRatio:     round2(float64(buy) / total * 100),
		NeutralRatio: round2(float64(neutral) / total * 100),
		SellRatio:    round2(float64(sell) / total * 100),
	}
}

func targetPriceStats(prices []float64) *TargetPriceStats {
	stats := &TargetPriceStats{}
	for _, p := range prices {
		if p <= 0 {
			continue
		}
		if stats.Count == 0 || p > stats.Max {
			stats.Max = p
		}
		if stats.Count == 0 || p < stats.Min {
			stats.Min = p
		}
		stats.Avg += p
		stats.Count++
	}
	if stats.Count == 0 {
		return nil
	}
	stats.Avg /= float64(stats.Count)
	return stats
}

func reportContents(reports []model.ResearchReport) []string {
	var contents []string
	for _, r := range reports {
		if r.Summary != "" {
			contents = append(contents, r.Summary)
		}
	}
	return contents
}

// analyzeReportContents 关键词主题与情感倾向。
// 正向信号超过负向1.5倍判positive，反之判negative，否则neutral。
func analyzeReportContents(contents []string) *ContentAnalysis {
	ca := &ContentAnalysis{Sentiment: "neutral", KeyTopics: []string{}}
	if len(contents) == 0 {
		return ca
	}
	combined := strings.ToLower(strings.Join(contents, " "))
	ca.HasContent = true
	ca.ReportsWithText = len(contents)

	for _, kw := range commonKeywords {
		if strings.Contains(combined, strings.ToLower(kw)) {
			ca.KeyTopics = append(ca.KeyTopics, kw)
			if len(ca.KeyTopics) >= maxKeyTopics {
				break
			}
		}
	}

	for _, w := range positiveWords {
		if strings.Contains(combined, w) {
			ca.PositiveSignals++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(combined, w) {
			ca.NegativeSignals++
		}
	}
	switch {
	case float64(ca.PositiveSignals) > float64(ca.NegativeSignals)*sentimentRatio:
		ca.Sentiment = "positive"
	case float64(ca.NegativeSignals) > float64(ca.PositiveSignals)*sentimentRatio:
		ca.Sentiment = "negative"
	}
	denom := ca.PositiveSignals + ca.NegativeSignals
	if denom == 0 {
		denom = 1
	}
	ca.SentimentScore = math.Round(float64(ca.PositiveSignals-ca.NegativeSignals)/float64(denom)*100*100) / 100
	return ca
}

// sentimentOf 单篇摘要的情感净值（正向词数-负向词数）
func sentimentOf(text string) int {
	if text == "" {
		return 0
	}
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			score--
		}
	}
	return score
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// --- 公告 ---

// AnnouncementResult 公告聚合结果
type AnnouncementResult struct {
	Success       bool                 `json:"data_success"`
	Symbol        string               `json:"symbol"`
	Source        string               `json:"source,omitempty"`
	DateRange     map[string]string    `json:"date_range,omitempty"`
	Announcements []model.Announcement `json:"announcements,omitempty"`
	Error         string               `json:"error,omitempty"`
}

const maxPDFDownloads = 5 // 只对最近几条公告做PDF落盘

// GetAnnouncementData 最近N天公告：tushare anns_d优先，东财公告中心兜底。
// 最近几条公告尝试下载PDF缓存到本地，下载失败不影响列表返回。
func (a *Access) GetAnnouncementData(symbol string, days int, analysisDate string) *AnnouncementResult {
	if days <= 0 {
		days = 30
	}
	result := &AnnouncementResult{Symbol: symbol}
	if !datasource.IsAShareCode(symbol) {
		result.Error = "公告数据仅支持A股"
		return result
	}

	end := a.now()
	if analysisDate != "" {
		if d, err := time.ParseInLocation("20060102", analysisDate, a.now().Location()); err == nil {
			end = d
		}
	}
	start := end.AddDate(0, 0, -days)
	result.DateRange = map[string]string{
		"start": start.Format("20060102"),
		"end":   end.Format("20060102"),
	}

	var anns []model.Announcement
	if ts := a.manager.Tushare(); ts != nil {
		table, err := ts.AnnsD(datasource.ConvertToTsCode(symbol), result.DateRange["start"], result.DateRange["end"])
		if err != nil {
			log.Printf("[WARN][Unified] tushare公告查询失败: %v", err)
		} else if !table.Empty() {
			anns = announcementsFromTushare(table)
			result.Source = "tushare"
		}
	}
	if len(anns) == 0 {
		em := a.manager.EastMoney()
		if em != nil {
			emAnns, err := em.Announcements(symbol, 20)
			if err != nil {
				log.Printf("[WARN][Unified] 东财公告查询失败: %v", err)
			} else if len(emAnns) > 0 {
				anns = emAnns
				result.Source = "eastmoney"
			}
		}
	}
	if len(anns) == 0 {
		result.Error = "未查询到公告数据"
		return result
	}

	// PDF落盘尽力而为，任何一条失败都不影响其他条目
	for i := range anns {
		if i >= maxPDFDownloads {
			break
		}
		if anns[i].URL == "" {
			continue
		}
		path, err := a.downloadAnnouncementPDF(symbol, &anns[i])
		if err != nil {
			log.Printf("[WARN][Unified] 公告PDF下载失败 %s: %v", anns[i].Title, err)
			continue
		}
		anns[i].PDFPath = path
	}

	result.Success = true
	result.Announcements = anns
	return result
}

// announcementsFromTushare anns_d行转公告条目，补全可用的原文链接
func announcementsFromTushare(table *model.Table) []model.Announcement {
	// 链接字段按优先级取首个非空
	urlColumns := []string{"pdf_url", "file_url", "adjunct_url", "page_pdf_url", "url", "src"}
	anns := make([]model.Announcement, 0, len(table.Rows))
	for i := range table.Rows {
		ann := model.Announcement{
			Date:   table.Get(i, "ann_date"),
			Title:  table.Get(i, "title"),
			Source: "tushare",
		}
		for _, col := range urlColumns {
			if u := normalizeNoticeURL(table.Get(i, col)); u != "" {
				ann.URL = u
				break
			}
		}
		anns = append(anns, ann)
	}
	return anns
}

// normalizeNoticeURL 补全协议相对与站点相对链接
func normalizeNoticeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return "https://static.cninfo.com.cn" + raw
	default:
		return raw
	}
}

// pdfClient 公告下载独立客户端，走代理环境由管理器的Apply负责
var pdfClient = &http.Client{Timeout: 25 * time.Second}

// downloadAnnouncementPDF 下载公告PDF并保存到 dataDir/announcements/<symbol>/。
// 响应可能是PDF本体、包着PDF的ZIP、或需要二跳的HTML详情页。
func (a *Access) downloadAnnouncementPDF(symbol string, ann *model.Announcement) (string, error) {
	content, err := fetchPDFBytes(ann.URL, ann.URL, 0)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(a.dataDir, "announcements", symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建公告目录失败: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.pdf", ann.Date, sanitizeFilename(ann.Title))
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("写入公告PDF失败: %w", err)
	}
	return path, nil
}

const maxPDFRedirectDepth = 2

// fetchPDFBytes 取PDF字节流，HTML响应时从页面里找真实PDF链接再跳一次
func fetchPDFBytes(rawURL, referer string, depth int) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("空的公告链接")
	}
	if depth > maxPDFRedirectDepth {
		return nil, fmt.Errorf("公告PDF链接跳转过深")
	}
	// 巨潮详情页可直接换算成下载地址，省一次HTML解析
	if dl := cninfoDownloadURL(rawURL); dl != "" {
		rawURL = dl
	}
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	resp, err := pdfClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("公告下载HTTP %d", resp.StatusCode)
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(content, []byte("%PDF")):
		return content, nil
	case strings.Contains(resp.Header.Get("Content-Type"), "application/pdf"):
		return content, nil
	case bytes.HasPrefix(content, []byte("PK")):
		return pdfFromZip(content)
	}

	// HTML详情页，解析出真实PDF链接
	next, ok := pdfLinkFromHTML(content)
	if !ok {
		return nil, fmt.Errorf("响应不是PDF且页面中无PDF链接")
	}
	return fetchPDFBytes(next, rawURL, depth+1)
}

// cninfoDownloadURL 从巨潮详情页URL合成下载URL，无法合成返回空串
func cninfoDownloadURL(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil || !strings.Contains(u.Host, "cninfo.com.cn") {
		return ""
	}
	q := u.Query()
	annID := q.Get("announcementId")
	if annID == "" {
		annID = q.Get("bulletinId")
	}
	annTime := q.Get("announcementTime")
	if annTime == "" {
		annTime = q.Get("announceTime")
	}
	if annID == "" || annTime == "" {
		return ""
	}
	return fmt.Sprintf("https://www.cninfo.com.cn/new/announcement/download?bulletinId=%s&announceTime=%s",
		url.QueryEscape(annID), url.QueryEscape(annTime))
}

// pdfFromZip 部分站点把PDF打进ZIP返回
func pdfFromZip(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("公告ZIP解析失败: %w", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".pdf") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("公告ZIP中没有PDF文件")
}

// pdfLinkFromHTML 在详情页里找PDF链接：a[href]优先，data-pdf属性兜底
func pdfLinkFromHTML(content []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", false
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".pdf") {
			found = normalizeNoticeURL(href)
			return false
		}
		return true
	})
	if found == "" {
		doc.Find("[data-pdf]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("data-pdf")
			if strings.HasSuffix(strings.ToLower(v), ".pdf") {
				found = normalizeNoticeURL(v)
				return false
			}
			return true
		})
	}
	return found, found != ""
}

// sanitizeFilename 文件名中的保留字符替换为下划线
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
