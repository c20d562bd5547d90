package model

// Table 保留数据源原始列结构的表格数据
// 财务报表等接口按报表类型返回原始列，不做跨数据源归一化
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Source  string     `json:"source,omitempty"`
}

// Empty 是否为空表
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// colIndex 列名到下标，找不到返回-1
func (t *Table) colIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Get 取第row行name列的值，缺失返回空串
func (t *Table) Get(row int, name string) string {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return ""
	}
	i := t.colIndex(name)
	if i < 0 || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// RowMap 第row行转为列名->值的映射
func (t *Table) RowMap(row int) map[string]string {
	m := map[string]string{}
	if t == nil || row < 0 || row >= len(t.Rows) {
		return m
	}
	for i, c := range t.Columns {
		if i < len(t.Rows[row]) {
			m[c] = t.Rows[row][i]
		}
	}
	return m
}
