package api

import (
	"jargon-translator/internal/models"
	"jargon-translator/internal/translator"
)

type TranslateRequest struct {
	Statement string `json:"statement"`
	Role      string `json:"role"`
}

type ExplainMoreRequest struct {
	Role string `json:"role"`
}

type StateResponse struct {
	translator.State
	Document *translator.Document `json:"document"`
}

type DocumentResponse struct {
	Document *translator.Document `json:"document"`
	Warnings []string             `json:"warnings,omitempty"`
}

type ExplanationResponse struct {
	Title       string             `json:"title"`
	Explanation models.Explanation `json:"explanation"`
	State       translator.State   `json:"state"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"upstream_status,omitempty"`
	Body       string `json:"upstream_body,omitempty"`
}
