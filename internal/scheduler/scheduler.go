// Package scheduler 定时任务：交易日早盘前刷新股票名单缓存。
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"stock-research-backend/internal/stocklist"
)

const (
	refreshMaxRetry      = 3
	refreshRetryInterval = 10 * time.Minute
)

// Scheduler 管理全部cron任务
type Scheduler struct {
	cron   *cron.Cron
	stocks *stocklist.Service
}

func New(stocks *stocklist.Service) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		stocks: stocks,
	}
}

// Register 注册股票名单刷新任务，spec为带秒的cron表达式
func (s *Scheduler) Register(stockListCron string) error {
	if _, err := s.cron.AddFunc(stockListCron, s.refreshStockList); err != nil {
		return fmt.Errorf("注册名单刷新任务失败: %w", err)
	}
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO][Scheduler] 定时任务已启动")
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[INFO][Scheduler] 定时任务已停止")
}

// refreshStockList 带重试的名单刷新。周末不刷新，cron表达式按1-5配置，
// 这里再兜一道以防配置改成每天。
func (s *Scheduler) refreshStockList() {
	wd := time.Now().Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return
	}
	for i := 0; i <= refreshMaxRetry; i++ {
		if i > 0 {
			log.Printf("[INFO][Scheduler] 第 %d 次重试刷新股票名单...", i)
			time.Sleep(refreshRetryInterval)
		}
		if _, err := s.stocks.Refresh(); err != nil {
			log.Printf("[WARN][Scheduler] 刷新股票名单失败: %v", err)
			continue
		}
		return
	}
	log.Printf("[ERROR][Scheduler] 股票名单刷新失败，已重试 %d 次", refreshMaxRetry)
}
