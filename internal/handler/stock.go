package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock-research-backend/internal/stocklist"
	"stock-research-backend/internal/unified"
)

// StockHandler 行情与分析数据接口
type StockHandler struct {
	access *unified.Access
	stocks *stocklist.Service
}

func NewStockHandler(access *unified.Access, stocks *stocklist.Service) *StockHandler {
	return &StockHandler{access: access, stocks: stocks}
}

// GetStocks 股票名单搜索，refresh=1强制刷新缓存
func (h *StockHandler) GetStocks(c *gin.Context) {
	keyword := c.Query("keyword")
	refresh := c.Query("refresh") == "1"

	stocks, fromCache := h.stocks.Search(keyword, refresh)
	if stocks == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取股票列表失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      stocks,
		"fromCache": fromCache,
	})
}

// GetStockInfo 个股概览，analysis_date指定历史分析时点
func (h *StockHandler) GetStockInfo(c *gin.Context) {
	code := c.Param("code")
	analysisDate := c.Query("analysis_date")
	c.JSON(http.StatusOK, h.access.GetStockInfo(code, analysisDate))
}

// GetKline 历史日线
func (h *StockHandler) GetKline(c *gin.Context) {
	code := c.Param("code")
	start := c.Query("start_date")
	end := c.Query("end_date")

	bars := h.access.GetStockData(code, start, end)
	if bars == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "所有数据源均获取失败",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bars})
}

// GetFinancial 财务报表，type ∈ {income, balance, cashflow}
func (h *StockHandler) GetFinancial(c *gin.Context) {
	code := c.Param("code")
	reportType := c.DefaultQuery("type", "income")

	table := h.access.GetFinancialData(code, reportType)
	if table == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "未获取到财务数据",
		})
		return
	}
	c.JSON(http.StatusOK, table)
}

// GetChipDistribution 筹码分布与主力行为分析
func (h *StockHandler) GetChipDistribution(c *gin.Context) {
	code := c.Param("code")
	tradeDate := c.Query("trade_date")
	analysisDate := c.Query("analysis_date")
	price, _ := strconv.ParseFloat(c.Query("price"), 64)

	c.JSON(http.StatusOK, h.access.GetChipDistributionData(code, tradeDate, price, analysisDate))
}

// GetBeta Beta系数
func (h *StockHandler) GetBeta(c *gin.Context) {
	code := c.Param("code")
	index := c.DefaultQuery("index", unified.DefaultBetaIndex)
	days, err := strconv.Atoi(c.DefaultQuery("days", "250"))
	if err != nil || days <= 0 {
		days = unified.DefaultBetaDays
	}

	beta, ok := h.access.GetBetaCoefficient(code, index, days)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "数据不足，无法计算Beta"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "beta": beta, "index": index, "days": days})
}

// GetWeek52 52周高低点
func (h *StockHandler) GetWeek52(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetWeek52HighLow(c.Param("code")))
}

// GetSectorFundFlow 所属行业资金流向
func (h *StockHandler) GetSectorFundFlow(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetSectorFundFlow(c.Param("code")))
}

// GetFundFlow 个股资金流向
func (h *StockHandler) GetFundFlow(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetFundFlowData(c.Param("code"), c.Query("analysis_date")))
}

// GetETF ETF日线
func (h *StockHandler) GetETF(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "60"))
	if err != nil {
		days = 60
	}
	c.JSON(http.StatusOK, h.access.GetETFData(c.Param("code"), days))
}

// GetResearchReports 券商研报聚合
func (h *StockHandler) GetResearchReports(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "180"))
	if err != nil {
		days = 180
	}
	c.JSON(http.StatusOK, h.access.GetResearchReportsData(c.Param("code"), days))
}

// GetAnnouncements 公告列表与PDF缓存
func (h *StockHandler) GetAnnouncements(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		days = 30
	}
	c.JSON(http.StatusOK, h.access.GetAnnouncementData(c.Param("code"), days, c.Query("analysis_date")))
}

// GetNews 新闻与公告快讯
func (h *StockHandler) GetNews(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetNewsData(c.Param("code")))
}

// GetMarketSentiment 市场情绪（指数指标+两融）
func (h *StockHandler) GetMarketSentiment(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetMarketSentimentData(c.Param("code"), c.Query("analysis_date")))
}

// GetRisk 风险数据（解禁与股东增减持）
func (h *StockHandler) GetRisk(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.GetRiskData(c.Param("code"), c.Query("analysis_date")))
}

// GetTradeDate 交易日解析
func (h *StockHandler) GetTradeDate(c *gin.Context) {
	analysisDate := c.Query("analysis_date")
	mode := "live"
	if analysisDate != "" {
		mode = "historical"
	}
	c.JSON(http.StatusOK, gin.H{
		"trade_date":    h.access.ResolveTradeDate(analysisDate),
		"analysis_mode": mode,
	})
}
