package chart

// Category 调色板类别
type Category int

const (
	CategoryCHC Category = iota // 摄像头健康检查等通用数据集
	CategoryMDF                 // MDF 解析数据集
)

var palettes = [...][]string{
	CategoryCHC: {
		"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b",
		"#e377c2", "#7f7f7f", "#bcbd22", "#17becf", "#393b79",
	},
	CategoryMDF: {
		"#0b6e4f", "#c84c09", "#3d5a80", "#8d0801", "#6a4c93", "#2a9d8f",
		"#b5838d", "#5c677d",
	},
}

// SnapshotColor 快照标记颜色
const SnapshotColor = "#ad9600"

// CategoryOf MDF 与 MDFParser 数据集使用 MDF 调色板
func CategoryOf(dataset string) Category {
	switch dataset {
	case "MDF", "MDFParser":
		return CategoryMDF
	default:
		return CategoryCHC
	}
}

// ColorPicker 两个独立游标的循环调色板，非并发安全
type ColorPicker struct {
	cursor [len(palettes)]int
}

// Next 返回当前颜色并前进，到末尾后回到第一个
func (p *ColorPicker) Next(c Category) string {
	pal := palettes[c]
	color := pal[p.cursor[c]]
	p.cursor[c] = (p.cursor[c] + 1) % len(pal)
	return color
}

// Reset 两个游标归零
func (p *ColorPicker) Reset() {
	p.cursor = [len(palettes)]int{}
}

// PaletteLen 调色板长度
func PaletteLen(c Category) int {
	return len(palettes[c])
}
