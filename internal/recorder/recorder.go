package recorder

// FetchAttempt 一次数据源尝试的结果
type FetchAttempt struct {
	Capability string // hist_bars / basic_info / realtime_quote / financial
	Symbol     string
	Provider   string
	Success    bool
	Rows       int
	ErrMsg     string
	ElapsedMS  int64
}

// Recorder 数据源调用流水记录
type Recorder interface {
	RecordFetch(a *FetchAttempt) error
	Close() error
}

// Noop 未配置数据库时的空实现
type Noop struct{}

func (Noop) RecordFetch(*FetchAttempt) error { return nil }
func (Noop) Close() error                    { return nil }
