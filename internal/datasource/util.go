package datasource

import "strconv"

// parseFloat 宽松数值解析，解析失败返回0
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
