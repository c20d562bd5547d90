// Package stocklist A股股票名单缓存：东财清单接口取全量，
// 进程内存一份，外部缓存（Redis）一份，定时任务凌晨刷新。
package stocklist

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"stock-research-backend/internal/model"
)

const (
	cacheKey      = "stocklist:a_shares"
	cacheDuration = 24 * time.Hour
	maxSearchHits = 100
)

// Lister 股票全量名单来源
type Lister interface {
	StockList() ([]model.Stock, error)
}

// Service 股票名单服务
type Service struct {
	lister Lister
	cache  CacheProvider

	mu        sync.RWMutex
	stocks    []model.Stock
	lastFetch time.Time
}

// NewService cache为nil时退化为进程内缓存
func NewService(lister Lister, cache CacheProvider) *Service {
	if cache == nil {
		cache = NewInMemoryCacheProvider()
	}
	return &Service{lister: lister, cache: cache}
}

// List 当前名单。内存新鲜直接用；否则依次尝试外部缓存、远端刷新。
func (s *Service) List() ([]model.Stock, bool, error) {
	s.mu.RLock()
	if len(s.stocks) > 0 && time.Since(s.lastFetch) < cacheDuration {
		defer s.mu.RUnlock()
		return s.stocks, true, nil
	}
	s.mu.RUnlock()

	var cached []model.Stock
	if err := s.cache.Get(cacheKey, &cached); err == nil && len(cached) > 0 {
		s.mu.Lock()
		s.stocks = cached
		s.lastFetch = time.Now()
		s.mu.Unlock()
		return cached, true, nil
	}

	stocks, err := s.Refresh()
	if err != nil {
		return nil, false, err
	}
	return stocks, false, nil
}

// Refresh 强制从远端刷新名单并回写两级缓存
func (s *Service) Refresh() ([]model.Stock, error) {
	if s.lister == nil {
		return nil, fmt.Errorf("股票名单来源不可用")
	}
	stocks, err := s.lister.StockList()
	if err != nil {
		return nil, fmt.Errorf("获取股票名单失败: %w", err)
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("股票名单为空")
	}
	log.Printf("[INFO][StockList] 股票名单刷新完成，共 %d 只", len(stocks))

	s.mu.Lock()
	s.stocks = stocks
	s.lastFetch = time.Now()
	s.mu.Unlock()

	if err := s.cache.Set(cacheKey, stocks, cacheDuration); err != nil {
		log.Printf("[WARN][StockList] 写入名单缓存失败: %v", err)
	}
	return stocks, nil
}

// Search 按代码或名称子串搜索，最多返回100条。
// forceRefresh为true时先刷新名单，刷新失败退回缓存数据。
func (s *Service) Search(keyword string, forceRefresh bool) ([]model.Stock, bool) {
	if forceRefresh {
		if _, err := s.Refresh(); err != nil {
			log.Printf("[WARN][StockList] 强制刷新失败，使用缓存: %v", err)
		}
	}
	stocks, fromCache, err := s.List()
	if err != nil {
		log.Printf("[WARN][StockList] 获取名单失败: %v", err)
		return nil, false
	}
	if keyword == "" {
		return stocks, fromCache
	}

	keyword = strings.ToUpper(keyword)
	var result []model.Stock
	for _, st := range stocks {
		if strings.Contains(st.Code, keyword) || strings.Contains(strings.ToUpper(st.Name), keyword) {
			result = append(result, st)
			if len(result) >= maxSearchHits {
				break
			}
		}
	}
	return result, fromCache
}

// Name 按代码查名称，名单里没有返回错误
func (s *Service) Name(code string) (string, error) {
	stocks, _, err := s.List()
	if err != nil {
		return "", err
	}
	for _, st := range stocks {
		if st.Code == code {
			return st.Name, nil
		}
	}
	return "", fmt.Errorf("股票不存在: %s", code)
}
