package models

// Passage is one retrieved chunk of the uploaded document.
type Passage struct {
	ChunkID  int     `json:"chunk_id"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}

// Explanation is what a translate or explain-more action produces.
type Explanation struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Statement string    `json:"statement,omitempty"`
	Prompt    string    `json:"-"`
	Sources   []Passage `json:"sources,omitempty"`
	Content   string    `json:"content"`
	Warnings  []string  `json:"warnings,omitempty"`
}
