package main

import (
	"bufio"
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stock-research-backend/internal/cache"
	"stock-research-backend/internal/config"
	"stock-research-backend/internal/datasource"
	"stock-research-backend/internal/handler"
	"stock-research-backend/internal/netopt"
	"stock-research-backend/internal/recorder"
	"stock-research-backend/internal/scheduler"
	"stock-research-backend/internal/stocklist"
	"stock-research-backend/internal/unified"
)

func init() {
	// 手动加载 .env 文件
	file, err := os.Open(".env")
	if err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
}

func main() {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置校验失败: %v", err)
	}

	// 代理池：加载配置并启动后台刷新
	net := netopt.New(cfg.Proxy.ConfigPath)
	net.StartRefreshLoop()
	defer net.Stop()

	// 调用流水：SQLite不可用时退化为空实现
	var rec recorder.Recorder = recorder.Noop{}
	if cfg.Recorder.Enabled {
		sqlRec, rerr := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
		if rerr != nil {
			log.Printf("[WARN][Server] 调用流水初始化失败，降级为不记录: %v", rerr)
		} else {
			rec = sqlRec
			defer sqlRec.Close()
		}
	}

	manager := datasource.NewManager(net, rec)
	access := unified.NewAccess(manager, unified.WithDataDir(cfg.DataDir))

	// Redis可选，连接失败时名单缓存退化为进程内
	var listCache stocklist.CacheProvider
	if err := cache.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[WARN][Server] %v，名单缓存使用进程内存", err)
	} else {
		log.Printf("[INFO][Server] Redis连接成功: %s", cfg.Redis.Addr)
		listCache = cache.Provider{}
		defer cache.Close()
	}
	stocks := stocklist.NewService(manager.EastMoney(), listCache)

	// 定时任务
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(stocks)
		if err := sched.Register(cfg.Scheduler.StockListCron); err != nil {
			log.Fatalf("注册定时任务失败: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	r := gin.Default()

	// 配置 CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r,
		handler.NewStockHandler(access, stocks),
		handler.NewProxyHandler(net),
	)

	log.Printf("服务启动在端口 %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("启动服务失败: %v", err)
	}
}

func getConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}
