package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stock-research-backend/internal/netopt"
)

// ProxyHandler 代理池管理接口
type ProxyHandler struct {
	net *netopt.Optimizer
}

func NewProxyHandler(net *netopt.Optimizer) *ProxyHandler {
	return &ProxyHandler{net: net}
}

// Status 代理池整体状态
func (h *ProxyHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.net.Status())
}

// List 静态代理列表（按优先级排序）
func (h *ProxyHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.net.ProxyList()})
}

type proxyAddRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Priority int    `json:"priority"`
}

// Add 新增静态代理
func (h *ProxyHandler) Add(c *gin.Context) {
	var req proxyAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	h.net.AddProxy(req.Name, req.Address, req.Priority)
	c.JSON(http.StatusOK, gin.H{"message": "代理已添加"})
}

type proxyNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// Remove 删除静态代理
func (h *ProxyHandler) Remove(c *gin.Context) {
	var req proxyNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	if !h.net.RemoveProxy(req.Name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "代理不存在: " + req.Name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "代理已删除"})
}

type proxyToggleRequest struct {
	Name    string `json:"name" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// Toggle 启用/停用静态代理
func (h *ProxyHandler) Toggle(c *gin.Context) {
	var req proxyToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	if !h.net.ToggleProxy(req.Name, *req.Enabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": "代理不存在: " + req.Name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "代理状态已更新"})
}

type proxyPriorityRequest struct {
	Name     string `json:"name" binding:"required"`
	Priority int    `json:"priority"`
}

// Priority 调整静态代理优先级
func (h *ProxyHandler) Priority(c *gin.Context) {
	var req proxyPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	if !h.net.UpdateProxyPriority(req.Name, req.Priority) {
		c.JSON(http.StatusNotFound, gin.H{"error": "代理不存在: " + req.Name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "代理优先级已更新"})
}

type proxyTestRequest struct {
	Address string `json:"address" binding:"required"`
}

// Test 连通性探测指定代理
func (h *ProxyHandler) Test(c *gin.Context) {
	var req proxyTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": req.Address,
		"ok":      h.net.TestProxy(req.Address),
	})
}

// Refresh 立即刷新动态代理池
func (h *ProxyHandler) Refresh(c *gin.Context) {
	h.net.RefreshDynamicPool()
	c.JSON(http.StatusOK, gin.H{"message": "动态代理池已刷新"})
}

// FetchFromSource 从指定动态源单次取一个代理地址
func (h *ProxyHandler) FetchFromSource(c *gin.Context) {
	var req proxyNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	addr, err := h.net.GetDynamicProxyFromSource(req.Name)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": req.Name, "proxy": addr})
}

type useProxyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetUseProxy 全局代理开关
func (h *ProxyHandler) SetUseProxy(c *gin.Context) {
	var req useProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}
	h.net.SetUseProxy(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"use_proxy": *req.Enabled})
}
