// Package netopt 管理出站HTTP的代理池：静态代理、动态代理源、健康探测与轮换。
package netopt

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultConfigPath     = "proxy_config.json"
	defaultProbeURL       = "https://www.baidu.com"
	probeTimeout          = 3 * time.Second
	refreshCheckInterval  = 60 * time.Second
	defaultRefreshMinutes = 10
)

// AuthType 动态代理源的认证方式
const (
	AuthToken    = "token"    // Authorization: Bearer <PROXYPOOL_TOKEN>
	AuthBasic    = "basic"    // HTTP Basic，取 PROXYPOOL_USERNAME/PROXYPOOL_PASSWORD
	AuthURLParam = "urlparam" // token作为URL参数
)

// ProxyEntry 静态代理条目
type ProxyEntry struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// DynamicSource 动态代理源，密钥只从环境变量读取，不落盘
type DynamicSource struct {
	Name     string            `json:"name"`
	BaseURL  string            `json:"base_url"`
	AuthType string            `json:"auth_type"`
	Params   map[string]string `json:"params,omitempty"`
	Enabled  bool              `json:"enabled"`
}

// configFile proxy_config.json 的持久化结构
type configFile struct {
	ProxyPriority  []ProxyEntry    `json:"proxy_priority"`
	DynamicSources []DynamicSource `json:"dynamic_sources"`
	UseProxy       bool            `json:"use_proxy"`
}

// Optimizer 进程级代理状态，全部读改写经由同一把锁
type Optimizer struct {
	mu              sync.Mutex
	useProxy        bool
	proxies         []ProxyEntry
	sources         []DynamicSource
	cache           []string // 动态代理轮换缓存
	cacheIdx        int
	lastRefresh     time.Time
	refreshInterval time.Duration
	configPath      string
	probeURL        string
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// New 从配置文件和环境变量构造Optimizer
func New(configPath string) *Optimizer {
	if configPath == "" {
		configPath = defaultConfigPath
	}
	o := &Optimizer{
		configPath:      configPath,
		probeURL:        defaultProbeURL,
		refreshInterval: time.Duration(defaultRefreshMinutes) * time.Minute,
		stopCh:          make(chan struct{}),
	}
	o.loadConfig()
	o.loadEnv()
	return o
}

// loadConfig 读取proxy_config.json，文件缺失按空配置处理
func (o *Optimizer) loadConfig() {
	data, err := os.ReadFile(o.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN][NetworkOptimizer] 读取代理配置失败: %v", err)
		}
		return
	}
	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		log.Printf("[WARN][NetworkOptimizer] 解析代理配置失败: %v", err)
		return
	}
	o.proxies = cf.ProxyPriority
	o.sources = cf.DynamicSources
	o.useProxy = cf.UseProxy
	log.Printf("[INFO][NetworkOptimizer] 已加载代理配置: 静态代理 %d 个, 动态源 %d 个", len(o.proxies), len(o.sources))
}

// loadEnv 环境变量覆盖配置文件
func (o *Optimizer) loadEnv() {
	if v := os.Getenv("USE_PROXY"); v != "" {
		o.useProxy = parseBool(v)
	}
	if v := os.Getenv("PROXY_REFRESH_INTERVAL_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			o.refreshInterval = time.Duration(n) * time.Minute
		}
	}
	if parseBool(os.Getenv("PROXYPOOL_ENABLED")) {
		base := os.Getenv("PROXYPOOL_BASE_URL")
		if base != "" {
			authType := os.Getenv("PROXYPOOL_AUTH_TYPE")
			if authType == "" {
				authType = AuthToken
			}
			o.upsertSourceLocked(DynamicSource{
				Name:     "proxypool",
				BaseURL:  base,
				AuthType: authType,
				Enabled:  true,
			})
			log.Printf("[INFO][NetworkOptimizer] 已从环境变量注册动态代理源: %s", base)
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// upsertSourceLocked 按名称更新或追加动态源，构造期调用无需加锁
func (o *Optimizer) upsertSourceLocked(src DynamicSource) {
	for i := range o.sources {
		if o.sources[i].Name == src.Name {
			o.sources[i] = src
			return
		}
	}
	o.sources = append(o.sources, src)
}

// save 持久化非密钥状态，调用方需持锁
func (o *Optimizer) save() {
	cf := configFile{
		ProxyPriority:  o.proxies,
		DynamicSources: o.sources,
		UseProxy:       o.useProxy,
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		log.Printf("[WARN][NetworkOptimizer] 序列化代理配置失败: %v", err)
		return
	}
	if err := os.WriteFile(o.configPath, data, 0o644); err != nil {
		log.Printf("[WARN][NetworkOptimizer] 写入代理配置失败: %v", err)
	}
}

// SetUseProxy 开启/关闭全局代理
func (o *Optimizer) SetUseProxy(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.useProxy = on
	o.save()
}

// UseProxy 当前是否启用代理
func (o *Optimizer) UseProxy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.useProxy
}

// AddProxy 新增静态代理
func (o *Optimizer) AddProxy(name, address string, priority int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.proxies = append(o.proxies, ProxyEntry{Name: name, Address: address, Priority: priority, Enabled: true})
	o.save()
	log.Printf("[INFO][NetworkOptimizer] 已添加代理 %s (%s)", name, address)
}

// RemoveProxy 按名称删除静态代理
func (o *Optimizer) RemoveProxy(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.proxies {
		if o.proxies[i].Name == name {
			o.proxies = append(o.proxies[:i], o.proxies[i+1:]...)
			o.save()
			return true
		}
	}
	return false
}

// UpdateProxy 更新静态代理地址
func (o *Optimizer) UpdateProxy(name, address string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.proxies {
		if o.proxies[i].Name == name {
			o.proxies[i].Address = address
			o.save()
			return true
		}
	}
	return false
}

// ToggleProxy 启用/禁用静态代理
func (o *Optimizer) ToggleProxy(name string, enabled bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.proxies {
		if o.proxies[i].Name == name {
			o.proxies[i].Enabled = enabled
			o.save()
			return true
		}
	}
	return false
}

// UpdateProxyPriority 调整静态代理优先级
func (o *Optimizer) UpdateProxyPriority(name string, priority int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.proxies {
		if o.proxies[i].Name == name {
			o.proxies[i].Priority = priority
			o.save()
			return true
		}
	}
	return false
}

// ProxyList 静态代理列表快照（按优先级升序）
func (o *Optimizer) ProxyList() []ProxyEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ProxyEntry, len(o.proxies))
	copy(out, o.proxies)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// AddDynamicSource 注册动态代理源
func (o *Optimizer) AddDynamicSource(src DynamicSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.upsertSourceLocked(src)
	o.save()
	log.Printf("[INFO][NetworkOptimizer] 已注册动态代理源 %s", src.Name)
}

// DynamicSources 动态源列表快照
func (o *Optimizer) DynamicSources() []DynamicSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]DynamicSource, len(o.sources))
	copy(out, o.sources)
	return out
}

// GetDynamicProxyFromSource 对指定源做一次性抓取，不写入轮换缓存
func (o *Optimizer) GetDynamicProxyFromSource(name string) (string, error) {
	o.mu.Lock()
	var src *DynamicSource
	for i := range o.sources {
		if o.sources[i].Name == name {
			s := o.sources[i]
			src = &s
			break
		}
	}
	o.mu.Unlock()
	if src == nil {
		return "", fmt.Errorf("未找到动态代理源: %s", name)
	}
	addrs, err := fetchFromSource(*src)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("动态代理源 %s 未返回代理", name)
	}
	return addrs[0], nil
}

// fetchFromSource 从动态源抓取代理地址列表，密钥在抓取时从环境变量读取
func fetchFromSource(src DynamicSource) ([]string, error) {
	u, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("动态源地址无效: %w", err)
	}
	q := u.Query()
	for k, v := range src.Params {
		q.Set(k, v)
	}
	if src.AuthType == AuthURLParam {
		if token := os.Getenv("PROXYPOOL_TOKEN"); token != "" {
			q.Set("token", token)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	switch src.AuthType {
	case AuthToken:
		if token := os.Getenv("PROXYPOOL_TOKEN"); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case AuthBasic:
		user := os.Getenv("PROXYPOOL_USERNAME")
		pass := os.Getenv("PROXYPOOL_PASSWORD")
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("动态源返回状态码 %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, fmt.Errorf("动态源响应为空")
	}
	return parseProxyResponse(body), nil
}

// parseProxyResponse 兼容纯文本（每行一个）与JSON数组/对象两种响应
func parseProxyResponse(body string) []string {
	var out []string
	if strings.HasPrefix(body, "[") || strings.HasPrefix(body, "{") {
		var arr []string
		if err := json.Unmarshal([]byte(body), &arr); err == nil {
			for _, a := range arr {
				if a = normalizeProxyAddr(a); a != "" {
					out = append(out, a)
				}
			}
			return out
		}
		var obj struct {
			Proxy   string   `json:"proxy"`
			Proxies []string `json:"proxies"`
			Data    []string `json:"data"`
		}
		if err := json.Unmarshal([]byte(body), &obj); err == nil {
			if a := normalizeProxyAddr(obj.Proxy); a != "" {
				out = append(out, a)
			}
			for _, a := range append(obj.Proxies, obj.Data...) {
				if a = normalizeProxyAddr(a); a != "" {
					out = append(out, a)
				}
			}
			return out
		}
	}
	for _, line := range strings.Split(body, "\n") {
		if a := normalizeProxyAddr(strings.TrimSpace(line)); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func normalizeProxyAddr(addr string) string {
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if _, err := url.Parse(addr); err != nil {
		return ""
	}
	return addr
}

// TestProxy 通过该代理对探测地址做一次快速GET
func (o *Optimizer) TestProxy(address string) bool {
	u, err := url.Parse(address)
	if err != nil {
		return false
	}
	client := &http.Client{
		Timeout:   probeTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(u)},
	}
	resp, err := client.Get(o.probeURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// GetActiveProxy 返回当前可用代理地址，全部失败返回空串（直连）
func (o *Optimizer) GetActiveProxy() string {
	o.mu.Lock()
	if !o.useProxy {
		o.mu.Unlock()
		return ""
	}
	statics := make([]ProxyEntry, len(o.proxies))
	copy(statics, o.proxies)
	o.mu.Unlock()

	sort.SliceStable(statics, func(i, j int) bool { return statics[i].Priority < statics[j].Priority })
	for _, p := range statics {
		if !p.Enabled {
			continue
		}
		if o.TestProxy(p.Address) {
			return p.Address
		}
		log.Printf("[WARN][NetworkOptimizer] 代理 %s 探测失败，尝试下一个", p.Name)
	}

	// 静态代理全部不可用，回退到动态池
	addr := o.nextDynamicProxy()
	if addr == "" {
		return ""
	}
	if o.TestProxy(addr) {
		return addr
	}
	log.Printf("[WARN][NetworkOptimizer] 动态代理 %s 探测失败，降级为直连", addr)
	return ""
}

// nextDynamicProxy 从轮换缓存取下一个地址，缓存过期则先刷新
func (o *Optimizer) nextDynamicProxy() string {
	o.mu.Lock()
	stale := time.Since(o.lastRefresh) > o.refreshInterval || len(o.cache) == 0
	o.mu.Unlock()
	if stale {
		o.RefreshDynamicPool()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.cache) == 0 {
		return ""
	}
	addr := o.cache[o.cacheIdx%len(o.cache)]
	o.cacheIdx++
	return addr
}

// RefreshDynamicPool 从所有启用的动态源重建轮换缓存，整体原子替换
func (o *Optimizer) RefreshDynamicPool() {
	o.mu.Lock()
	sources := make([]DynamicSource, len(o.sources))
	copy(sources, o.sources)
	o.mu.Unlock()

	var fresh []string
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		addrs, err := fetchFromSource(src)
		if err != nil {
			log.Printf("[WARN][NetworkOptimizer] 刷新动态源 %s 失败: %v", src.Name, err)
			continue
		}
		fresh = append(fresh, addrs...)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache = fresh
	o.cacheIdx = 0
	o.lastRefresh = time.Now()
	if len(fresh) > 0 {
		log.Printf("[INFO][NetworkOptimizer] 动态代理池已刷新: %d 个地址", len(fresh))
	}
}

// StartRefreshLoop 启动后台刷新循环：每60秒检查一次，间隔到期才真正刷新
func (o *Optimizer) StartRefreshLoop() {
	go func() {
		ticker := time.NewTicker(refreshCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-o.stopCh:
				return
			case <-ticker.C:
				o.mu.Lock()
				due := time.Since(o.lastRefresh) >= o.refreshInterval
				hasSource := false
				for _, s := range o.sources {
					if s.Enabled {
						hasSource = true
						break
					}
				}
				o.mu.Unlock()
				if due && hasSource {
					o.RefreshDynamicPool()
				}
			}
		}
	}()
}

// Stop 停止后台刷新循环
func (o *Optimizer) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// Apply 计算当前可用代理并导出到进程环境变量，返回的restore函数
// 恢复先前的环境状态；调用方必须 defer restore()，panic时也能还原。
func (o *Optimizer) Apply() (restore func()) {
	proxy := o.GetActiveProxy()

	prevHTTP, hadHTTP := os.LookupEnv("http_proxy")
	prevHTTPS, hadHTTPS := os.LookupEnv("https_proxy")

	if proxy != "" {
		os.Setenv("http_proxy", proxy)
		os.Setenv("https_proxy", proxy)
	}

	return func() {
		if hadHTTP {
			os.Setenv("http_proxy", prevHTTP)
		} else {
			os.Unsetenv("http_proxy")
		}
		if hadHTTPS {
			os.Setenv("https_proxy", prevHTTPS)
		} else {
			os.Unsetenv("https_proxy")
		}
	}
}

// Transport 返回按请求读取环境变量的代理Transport。
// net/http 的 ProxyFromEnvironment 每进程只读一次环境变量，
// 这里改为每个请求实时读取，配合 Apply 的作用域语义。
func (o *Optimizer) Transport() *http.Transport {
	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			var addr string
			if req.URL != nil && req.URL.Scheme == "https" {
				addr = os.Getenv("https_proxy")
			}
			if addr == "" {
				addr = os.Getenv("http_proxy")
			}
			if addr == "" {
				return nil, nil
			}
			return url.Parse(addr)
		},
	}
}

// Status 网络状态报告
func (o *Optimizer) Status() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	enabled := 0
	for _, p := range o.proxies {
		if p.Enabled {
			enabled++
		}
	}
	return map[string]any{
		"use_proxy":        o.useProxy,
		"static_total":     len(o.proxies),
		"static_enabled":   enabled,
		"dynamic_sources":  len(o.sources),
		"dynamic_cached":   len(o.cache),
		"last_refresh":     o.lastRefresh.Format("2006-01-02 15:04:05"),
		"refresh_interval": o.refreshInterval.String(),
	}
}
