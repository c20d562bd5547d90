// Package config 应用配置：YAML文件为底，环境变量覆盖，缺省值兜底。
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config 全部应用配置
type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`

	DataSource struct {
		TushareToken string `yaml:"tushare_token"`
		TDXAPIBase   string `yaml:"tdx_api_base"`
	} `yaml:"data_source"`

	Proxy struct {
		ConfigPath string `yaml:"config_path"`
	} `yaml:"proxy"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Recorder struct {
		Enabled    bool   `yaml:"enabled"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`

	Scheduler struct {
		StockListCron string `yaml:"stock_list_cron"` // 股票名单缓存刷新
		Enabled       bool   `yaml:"enabled"`
	} `yaml:"scheduler"`

	DataDir string `yaml:"data_dir"` // 公告PDF等落盘目录
}

// Load 读取YAML配置，随后按环境变量覆盖，最后补缺省值。
// 配置文件不存在不是错误，纯环境变量部署是常态。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	// 环境变量覆盖
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.DataSource.TushareToken = v
	}
	if v := os.Getenv("TDX_API_BASE"); v != "" {
		cfg.DataSource.TDXAPIBase = v
	}
	if v := os.Getenv("PROXY_CONFIG_PATH"); v != "" {
		cfg.Proxy.ConfigPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, perr := strconv.Atoi(v); perr == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Recorder.SQLitePath = v
		cfg.Recorder.Enabled = true
	}
	if v := os.Getenv("RECORDER_ENABLED"); v != "" {
		if b, perr := strconv.ParseBool(v); perr == nil {
			cfg.Recorder.Enabled = b
		}
	}
	if v := os.Getenv("STOCK_LIST_CRON"); v != "" {
		cfg.Scheduler.StockListCron = v
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if b, perr := strconv.ParseBool(v); perr == nil {
			cfg.Scheduler.Enabled = b
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// 缺省值
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	if cfg.Proxy.ConfigPath == "" {
		cfg.Proxy.ConfigPath = "proxy_config.json"
	}
	if cfg.Recorder.SQLitePath == "" {
		cfg.Recorder.SQLitePath = "data/fetch_log.db"
	}
	if cfg.Scheduler.StockListCron == "" {
		// 交易日早盘前刷新股票名单缓存
		cfg.Scheduler.StockListCron = "0 0 8 * * 1-5"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	return cfg, nil
}

// Validate 校验端口等关键字段可用
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port 不能为空")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port 必须是数字: %s", c.Server.Port)
	}
	return nil
}
