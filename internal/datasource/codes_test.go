package datasource

import (
	"fmt"
	"testing"
)

func TestConvertToTsCode_PrefixMapping(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"600519", "600519.SH"},
		{"688981", "688981.SH"},
		{"510300", "510300.SH"},
		{"000001", "000001.SZ"},
		{"159915", "159915.SZ"},
		{"300750", "300750.SZ"},
		{"830001", "830001.BJ"},
		{"430047", "430047.BJ"},
		{"920001", "920001.SZ"}, // 未覆盖前缀默认深圳
	}
	for _, tt := range tests {
		if got := ConvertToTsCode(tt.symbol); got != tt.want {
			t.Errorf("ConvertToTsCode(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestConvertToTsCode_NonSixDigitUnchanged(t *testing.T) {
	for _, s := range []string{"", "12345", "1234567", "600519.SH"} {
		if got := ConvertToTsCode(s); got != s {
			t.Errorf("ConvertToTsCode(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestConvertCode_RoundTrip(t *testing.T) {
	// 各前缀抽样做往返验证
	for _, prefix := range []byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9'} {
		for _, tail := range []string{"00001", "12345", "99999"} {
			s := fmt.Sprintf("%c%s", prefix, tail)
			if got := ConvertFromTsCode(ConvertToTsCode(s)); got != s {
				t.Errorf("round trip %q -> %q", s, got)
			}
		}
	}
}

func TestLooksLikeETFCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"510300", true},
		{"159915", true},
		{"600519", false},
		{"000001", false},
		{"51030", false},
		{"51030a", false},
	}
	for _, tt := range tests {
		if got := LooksLikeETFCode(tt.code); got != tt.want {
			t.Errorf("LooksLikeETFCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSecurityType(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"600519", "股票"},
		{"510300", "基金"},
		{"830001", "北交所股票"},
		{"AAPL", "未知"},
	}
	for _, tt := range tests {
		if got := SecurityType(tt.code); got != tt.want {
			t.Errorf("SecurityType(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
