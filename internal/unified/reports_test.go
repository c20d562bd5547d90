package unified

import (
	"testing"

	"stock-research-backend/internal/model"
)

func TestDedupeReports(t *testing.T) {
	reports := []model.ResearchReport{
		{Date: "2024-01-05", Org: "中信证券", Title: "深度报告"},
		{Date: "2024-01-05", Org: "中信证券", Title: "深度报告"},
		{Date: "2024-01-05", Org: "国泰君安", Title: "深度报告"},
		{Date: "2024-01-04", Org: "中信证券", Title: "点评"},
	}
	out := dedupeReports(reports)
	if len(out) != 3 {
		t.Fatalf("deduped count = %d, want 3", len(out))
	}
	if out[0].Org != "中信证券" || out[1].Org != "国泰君安" {
		t.Error("dedupe should keep first occurrence order")
	}
}

func TestAnalyzeRatings_Ratio(t *testing.T) {
	reports := []model.ResearchReport{
		{Rating: "买入"},
		{Rating: "增持"},
		{Rating: "持有"},
		{Rating: "卖出"},
	}
	dist, ratio := analyzeRatings(reports)
	if dist["买入"] != 1 {
		t.Errorf("distribution[买入] = %d, want 1", dist["买入"])
	}
	if ratio.BuyRatio != 50.0 {
		t.Errorf("buy ratio = %f, want 50.0", ratio.BuyRatio)
	}
	if ratio.NeutralRatio != 25.0 {
		t.Errorf("neutral ratio = %f, want 25.0", ratio.NeutralRatio)
	}
	if ratio.SellRatio != 25.0 {
		t.Errorf("sell ratio = %f, want 25.0", ratio.SellRatio)
	}
}

func TestAnalyzeRatings_CompoundRating(t *testing.T) {
	// "强烈推荐"命中"推荐"，归入买入档
	_, ratio := analyzeRatings([]model.ResearchReport{{Rating: "强烈推荐"}})
	if ratio.BuyRatio != 100.0 {
		t.Errorf("buy ratio = %f, want 100.0", ratio.BuyRatio)
	}
}

func TestAnalyzeReportContents_Sentiment(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		want     string
	}{
		{"positive dominant", []string{"业绩增长超预期，盈利提升，基本面改善，维持买入"}, "positive"},
		{"negative dominant", []string{"收入下降，毛利率下滑，行业风险加大，建议减持"}, "negative"},
		{"balanced", []string{"增长放缓但风险可控"}, "neutral"},
		{"empty", nil, "neutral"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca := analyzeReportContents(tt.contents)
			if ca.Sentiment != tt.want {
				t.Errorf("sentiment = %s, want %s (pos=%d neg=%d)",
					ca.Sentiment, tt.want, ca.PositiveSignals, ca.NegativeSignals)
			}
		})
	}
}

func TestAnalyzeReportContents_KeyTopics(t *testing.T) {
	ca := analyzeReportContents([]string{"公司业绩增长，净利润创新高，目标价上调，行业前景向好"})
	if !ca.HasContent {
		t.Fatal("expected has_content")
	}
	if len(ca.KeyTopics) == 0 || len(ca.KeyTopics) > maxKeyTopics {
		t.Errorf("key topics count = %d, want 1..%d", len(ca.KeyTopics), maxKeyTopics)
	}
	found := false
	for _, topic := range ca.KeyTopics {
		if topic == "增长" {
			found = true
		}
	}
	if !found {
		t.Error("expected 增长 in key topics")
	}
}

func TestTargetPriceStats(t *testing.T) {
	stats := targetPriceStats([]float64{100, 0, 80, 120})
	if stats == nil {
		t.Fatal("expected stats")
	}
	if stats.Count != 3 {
		t.Errorf("count = %d, want 3 (zero skipped)", stats.Count)
	}
	if stats.Max != 120 || stats.Min != 80 {
		t.Errorf("max/min = %f/%f, want 120/80", stats.Max, stats.Min)
	}
	if stats.Avg != 100 {
		t.Errorf("avg = %f, want 100", stats.Avg)
	}
	if targetPriceStats(nil) != nil {
		t.Error("expected nil stats with no prices")
	}
}

func TestSentimentOf(t *testing.T) {
	if got := sentimentOf("业绩增长，前景看好"); got <= 0 {
		t.Errorf("sentiment = %d, want > 0", got)
	}
	if got := sentimentOf("收入下滑，存在风险"); got >= 0 {
		t.Errorf("sentiment = %d, want < 0", got)
	}
	if got := sentimentOf(""); got != 0 {
		t.Errorf("sentiment = %d, want 0", got)
	}
}

func TestNormalizeNoticeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//static.cninfo.com.cn/a.pdf", "https://static.cninfo.com.cn/a.pdf"},
		{"/finalpage/2024/a.pdf", "https://static.cninfo.com.cn/finalpage/2024/a.pdf"},
		{"https://example.com/a.pdf", "https://example.com/a.pdf"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := normalizeNoticeURL(tt.in); got != tt.want {
			t.Errorf("normalizeNoticeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPDFLinkFromHTML(t *testing.T) {
	html := []byte(`<html><body><a href="/finalpage/2024/notice.PDF">公告全文</a></body></html>`)
	got, ok := pdfLinkFromHTML(html)
	if !ok {
		t.Fatal("expected pdf link")
	}
	if got != "https://static.cninfo.com.cn/finalpage/2024/notice.PDF" {
		t.Errorf("link = %s", got)
	}

	html = []byte(`<html><body><div data-pdf="//static.cninfo.com.cn/b.pdf">查看</div></body></html>`)
	got, ok = pdfLinkFromHTML(html)
	if !ok || got != "https://static.cninfo.com.cn/b.pdf" {
		t.Errorf("data-pdf link = %s, ok = %v", got, ok)
	}

	if _, ok := pdfLinkFromHTML([]byte("<html><body>无链接</body></html>")); ok {
		t.Error("expected no link")
	}
}

func TestCninfoDownloadURL(t *testing.T) {
	detail := "https://www.cninfo.com.cn/new/disclosure/detail?plate=sse&orgId=9900&stockCode=600519&announcementId=123456&announcementTime=20240105"
	got := cninfoDownloadURL(detail)
	want := "https://www.cninfo.com.cn/new/announcement/download?bulletinId=123456&announceTime=20240105"
	if got != want {
		t.Errorf("download url = %s, want %s", got, want)
	}
	if got := cninfoDownloadURL("https://static.cninfo.com.cn/finalpage/a.pdf"); got != "" {
		t.Errorf("pdf url must not be rewritten, got %s", got)
	}
	if got := cninfoDownloadURL("https://example.com/detail?announcementId=1&announcementTime=2"); got != "" {
		t.Errorf("non-cninfo host must not be rewritten, got %s", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename(`2024年报:全文/更新*版?`); got != "2024年报_全文_更新_版_" {
		t.Errorf("sanitized = %s", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("短文本", 500); got != "短文本" {
		t.Errorf("short text changed: %s", got)
	}
	long := make([]rune, 600)
	for i := range long {
		long[i] = '长'
	}
	got := truncateRunes(string(long), 500)
	if len([]rune(got)) != 503 {
		t.Errorf("truncated rune length = %d, want 503", len([]rune(got)))
	}
}
