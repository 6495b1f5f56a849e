package dto

import "callcenter-assistant-be/pkg/retriever"

type AskRequest struct {
	Query          string   `json:"query" validate:"required,min=1"`
	ConversationId string   `json:"conversation_id"`
	FileIds        []string `json:"file_ids"`
	Tool           string   `json:"tool"` // explicit tool selection, optional
}

type AskResponse struct {
	ConversationId string               `json:"conversation_id"`
	MessageId      string               `json:"message_id"`
	Answer         string               `json:"answer"`
	Type           string               `json:"type"`
	Intent         string               `json:"intent"`
	Language       string               `json:"language"`
	ToolRan        string               `json:"tool_ran,omitempty"`
	Sources        []retriever.Citation `json:"sources"`
}

type ConversationResponse struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type MessageResponse struct {
	Id               string               `json:"id"`
	Role             string               `json:"role"`
	Content          string               `json:"content"`
	OriginalLanguage string               `json:"original_language,omitempty"`
	Type             string               `json:"type"`
	Sources          []retriever.Citation `json:"sources,omitempty"`
	CreatedAt        string               `json:"created_at"`
}
