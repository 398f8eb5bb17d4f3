package domain

// ExtractedText is the outcome of the direct-extraction step. Sufficient
// is an expected branch condition, not an error: an insufficient result
// triggers the OCR fallback.
type ExtractedText struct {
	Text       string
	Sufficient bool
}

// MinExtractedChars is the threshold below which direct PDF text
// extraction is considered insufficient and OCR kicks in.
const MinExtractedChars = 50

// TokenUsage reports LLM token consumption for one grouping call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExamReport is the LLM-grouped extraction result, keyed by exam category.
type ExamReport struct {
	Categories map[string]any `json:"categories"`
	Source     string         `json:"source"` // "text" or "ocr"
	Chars      int            `json:"chars"`
}
