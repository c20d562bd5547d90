package unified

import (
	"log"

	"stock-research-backend/internal/model"
)

const minBetaObservations = 50

// pctChanges 收盘价序列转日涨跌幅序列
func pctChanges(bars []model.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (bars[i].Close-prev)/prev*100)
	}
	return out
}

// computeBeta Beta = Cov(stock, index) / Var(index)，样本协方差/方差
// 观测数不足50或指数方差为零时返回(0, false)
func computeBeta(stockReturns, indexReturns []float64) (float64, bool) {
	n := len(stockReturns)
	if len(indexReturns) < n {
		n = len(indexReturns)
	}
	if n < minBetaObservations {
		return 0, false
	}
	// 对齐到最近n个观测
	s := stockReturns[len(stockReturns)-n:]
	x := indexReturns[len(indexReturns)-n:]

	var sMean, xMean float64
	for i := 0; i < n; i++ {
		sMean += s[i]
		xMean += x[i]
	}
	sMean /= float64(n)
	xMean /= float64(n)

	var cov, varx float64
	for i := 0; i < n; i++ {
		cov += (s[i] - sMean) * (x[i] - xMean)
		varx += (x[i] - xMean) * (x[i] - xMean)
	}
	cov /= float64(n - 1)
	varx /= float64(n - 1)

	if varx == 0 {
		return 0, false
	}
	return cov / varx, true
}

// GetBetaCoefficient 计算个股相对基准指数的Beta系数
// 取2倍自然日窗口以覆盖非交易日，截取最近days个观测
// 数据不足或指数退化时返回(0, false)，不报错
func (a *Access) GetBetaCoefficient(symbol, indexCode string, days int) (float64, bool) {
	if indexCode == "" {
		indexCode = "000300.SH"
	}
	if days <= 0 {
		days = 250
	}
	now := a.now()
	end := now.Format("20060102")
	start := now.AddDate(0, 0, -days*2).Format("20060102")

	stockBars, err := a.manager.GetStockHistData(symbol, start, end, "qfq")
	if err != nil || len(stockBars) == 0 {
		log.Printf("[WARN][Unified] 计算Beta失败: 无 %s 的历史数据", symbol)
		return 0, false
	}
	indexBars := a.indexBars(indexCode, start, end)
	if len(indexBars) == 0 {
		log.Printf("[WARN][Unified] 计算Beta失败: 无 %s 的指数数据", indexCode)
		return 0, false
	}

	stockReturns := tail(pctChanges(stockBars), days)
	indexReturns := tail(pctChanges(indexBars), days)
	return computeBeta(stockReturns, indexReturns)
}

// indexBars 指数日线：优先tushare index_daily，失败走东财
func (a *Access) indexBars(indexCode, start, end string) []model.Bar {
	if ts := a.manager.Tushare(); ts != nil {
		table, err := ts.IndexDaily(indexCode, start, end)
		if err == nil && !table.Empty() {
			bars := make([]model.Bar, 0, len(table.Rows))
			for i := range table.Rows {
				bars = append(bars, model.Bar{
					Date:  table.Get(i, "trade_date"),
					Open:  parseFloat(table.Get(i, "open")),
					High:  parseFloat(table.Get(i, "high")),
					Low:   parseFloat(table.Get(i, "low")),
					Close: parseFloat(table.Get(i, "close")),
				})
			}
			return sortBars(bars)
		}
		if err != nil {
			log.Printf("[WARN][Unified] tushare指数日线失败: %v", err)
		}
	}
	// 东财指数走secid 1.000300形式
	em := a.manager.EastMoney()
	if em == nil {
		return nil
	}
	code := indexCode
	if i := len(code) - 3; i > 0 && (code[i:] == ".SH" || code[i:] == ".SZ") {
		code = code[:i]
	}
	bars, err := em.HistBars(code, start, end, "")
	if err != nil {
		log.Printf("[WARN][Unified] 东财指数日线失败: %v", err)
		return nil
	}
	return bars
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// GetWeek52HighLow 52周高低点区间与当前位置
func (a *Access) GetWeek52HighLow(symbol string) *model.Week52Range {
	now := a.now()
	start := now.AddDate(0, 0, -365).Format("20060102")
	end := now.Format("20060102")

	bars, err := a.manager.GetStockHistData(symbol, start, end, "qfq")
	if err != nil || len(bars) == 0 {
		return &model.Week52Range{Success: false, Error: "数据获取失败"}
	}
	return week52FromBars(bars)
}

// week52FromBars 纯计算部分，便于测试
func week52FromBars(bars []model.Bar) *model.Week52Range {
	r := &model.Week52Range{Success: true}
	r.High = bars[0].High
	r.Low = bars[0].Low
	r.HighDate = bars[0].Date
	r.LowDate = bars[0].Date
	for _, b := range bars {
		if b.High > r.High {
			r.High = b.High
			r.HighDate = b.Date
		}
		if b.Low < r.Low {
			r.Low = b.Low
			r.LowDate = b.Date
		}
	}
	r.Current = bars[len(bars)-1].Close
	if r.High == r.Low {
		// 退化区间（恒定序列），取中位
		r.PositionPercent = 50.0
	} else {
		r.PositionPercent = (r.Current - r.Low) / (r.High - r.Low) * 100
	}
	return r
}

// 默认基准指数与观察窗口
const (
	DefaultBetaIndex = "000300.SH"
	DefaultBetaDays  = 250
)
