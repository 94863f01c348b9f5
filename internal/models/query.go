package models

import (
	"fmt"
	"strings"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4
	maxTopK     = 50
)

// AskRequest is a question against a built corpus.
type AskRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate ensures the request has a query and normalizes TopK.
func (r *AskRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	if r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}

// TransformRequest carries text for simplify and translate.
type TransformRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// TransformResponse is the output of a transform.
type TransformResponse struct {
	Text    string `json:"text"`
	Changed bool   `json:"changed"`
}

// ChatTurn is one line of a caller-held transcript.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single stateless chat turn. History is whatever transcript the caller wants prepended.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
}

// Validate rejects empty messages and unknown roles.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	for i, turn := range r.History {
		switch turn.Role {
		case "user", "assistant":
		default:
			return fmt.Errorf("history[%d]: unknown role %q", i, turn.Role)
		}
	}
	return nil
}

// ChatResponse is the reply to a chat turn.
type ChatResponse struct {
	Reply string `json:"reply"`
}
