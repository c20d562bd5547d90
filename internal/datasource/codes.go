package datasource

import "strings"

// ConvertToTsCode 将6位代码转换为带交易所后缀的形式（如 600519.SH）
// 非6位输入原样返回，不做校验
func ConvertToTsCode(symbol string) string {
	if len(symbol) != 6 {
		return symbol
	}
	switch symbol[0] {
	case '6':
		return symbol + ".SH" // 上海主板
	case '5':
		return symbol + ".SH" // 上海ETF
	case '0', '1', '3':
		return symbol + ".SZ" // 深圳主板/基金/创业板
	case '8', '4':
		return symbol + ".BJ" // 北交所
	default:
		return symbol + ".SZ"
	}
}

// ConvertFromTsCode 去掉交易所后缀
func ConvertFromTsCode(tsCode string) string {
	if i := strings.Index(tsCode, "."); i >= 0 {
		return tsCode[:i]
	}
	return tsCode
}

// LooksLikeETFCode ETF代码启发式判断：6位数字且以5或1开头
func LooksLikeETFCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return code[0] == '5' || code[0] == '1'
}

// IsAShareCode A股代码判断：6位纯数字
func IsAShareCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SecurityType 按代码前缀判断证券类型，纯启发式，无网络调用
func SecurityType(code string) string {
	if !IsAShareCode(code) {
		return "未知"
	}
	switch {
	case LooksLikeETFCode(code):
		return "基金"
	case code[0] == '6' || code[0] == '0' || code[0] == '3':
		return "股票"
	case code[0] == '8' || code[0] == '4':
		return "北交所股票"
	default:
		return "股票"
	}
}
