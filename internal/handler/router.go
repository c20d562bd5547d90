// Package handler Gin路由与请求处理。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 挂载全部API路由
func RegisterRoutes(r *gin.Engine, stock *StockHandler, proxy *ProxyHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/stocks", stock.GetStocks)
		api.GET("/trade-date", stock.GetTradeDate)

		one := api.Group("/stocks/:code")
		{
			one.GET("/info", stock.GetStockInfo)
			one.GET("/kline", stock.GetKline)
			one.GET("/financial", stock.GetFinancial)
			one.GET("/chip", stock.GetChipDistribution)
			one.GET("/beta", stock.GetBeta)
			one.GET("/week52", stock.GetWeek52)
			one.GET("/sector-flow", stock.GetSectorFundFlow)
			one.GET("/fund-flow", stock.GetFundFlow)
			one.GET("/etf", stock.GetETF)
			one.GET("/reports", stock.GetResearchReports)
			one.GET("/announcements", stock.GetAnnouncements)
			one.GET("/news", stock.GetNews)
			one.GET("/sentiment", stock.GetMarketSentiment)
			one.GET("/risk", stock.GetRisk)
		}

		px := api.Group("/proxy")
		{
			px.GET("/status", proxy.Status)
			px.GET("/list", proxy.List)
			px.POST("", proxy.Add)
			px.POST("/remove", proxy.Remove)
			px.POST("/toggle", proxy.Toggle)
			px.POST("/priority", proxy.Priority)
			px.POST("/test", proxy.Test)
			px.POST("/refresh", proxy.Refresh)
			px.POST("/source-fetch", proxy.FetchFromSource)
			px.POST("/use", proxy.SetUseProxy)
		}
	}
}
