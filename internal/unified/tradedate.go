package unified

import (
	"log"
	"time"
)

// 交易日判断为简化模型：周一到周五视为交易日，不维护节假日表。
// 多日长假（如春节）期间回退步数的假设依赖该简化，勿单独加节假日表。

// isTradingDay 周一至周五
func isTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// prevTradingDay 从t的前一天起向前找最近交易日，最多回退maxBack天
// 找不到时返回t自身的日期
func prevTradingDay(t time.Time, maxBack int) time.Time {
	d := t
	for i := 0; i < maxBack; i++ {
		d = d.AddDate(0, 0, -1)
		if isTradingDay(d) {
			return d
		}
	}
	return t
}

// resolveTradeDate 计算"当前应查询的交易日"，输出YYYYMMDD
//   - analysisDate非空：历史模式。该日期是交易日则原样使用，
//     否则向前回退（最多7天）到最近交易日
//   - 实时模式：周末回退（最多7天）；交易日开盘前(09:30前)回退到上一
//     交易日（最多3天）；其余时段（盘中/午休/收盘后）使用今天
func resolveTradeDate(now time.Time, analysisDate string) string {
	if analysisDate != "" {
		d, err := time.ParseInLocation("20060102", analysisDate, now.Location())
		if err != nil {
			log.Printf("[WARN][TradeDate] 分析日期 %q 无法解析，按实时模式处理", analysisDate)
		} else {
			if isTradingDay(d) {
				return d.Format("20060102")
			}
			return prevTradingDay(d, 7).Format("20060102")
		}
	}

	if !isTradingDay(now) {
		return prevTradingDay(now, 7).Format("20060102")
	}

	// 开盘前（09:30之前）数据源通常还没有当日数据
	if now.Hour() < 9 || (now.Hour() == 9 && now.Minute() < 30) {
		return prevTradingDay(now, 3).Format("20060102")
	}

	return now.Format("20060102")
}

// isMarketOpen 是否处于连续竞价时段（09:30-11:30, 13:00-15:00）
func isMarketOpen(now time.Time) bool {
	if !isTradingDay(now) {
		return false
	}
	hm := now.Hour()*100 + now.Minute()
	return (hm >= 930 && hm <= 1130) || (hm >= 1300 && hm <= 1500)
}
