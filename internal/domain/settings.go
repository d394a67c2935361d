package domain

// DisplaySettings 全局显示设置（文字缩放、高对比度），核心逻辑只读
type DisplaySettings struct {
	TextScale    float64 `json:"textScale"`
	HighContrast bool    `json:"highContrast"`
}
