package model

// CompositeResult 合成结果
type CompositeResult struct {
	Key         string `json:"key"`
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Product     BBox   `json:"product"`
	Overlay     BBox   `json:"overlay"`
	Timestamp   int64  `json:"timestamp"`
}

// BBox 边界框，坐标可以为负或超出画布
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ValidateResponse 参数校验响应
type ValidateResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Options *CompositeOptions `json:"options,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
