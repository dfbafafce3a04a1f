package domain

import "time"

// ChatExchange is one persisted question/answer pair about a bill.
// Response may embed a <think>...</think> segment.
type ChatExchange struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
	BillID    string    `json:"billId"`
}

// ChatRequest is the request to send a chat message about a bill
type ChatRequest struct {
	BillID  string `json:"billId" binding:"required,notblank"`
	Message string `json:"message" binding:"required,notblank"`
}

// ChatResponse is the response of a non-streaming chat
type ChatResponse struct {
	ID       string  `json:"id"`
	Message  string  `json:"message"`
	Response string  `json:"response"`
	Thinking *string `json:"thinking"`
	Answer   *string `json:"answer"`
}

// SaveChatRequest stores an exchange produced elsewhere (e.g. by a streamed chat)
type SaveChatRequest struct {
	BillID   string `json:"billId" binding:"required,notblank"`
	Message  string `json:"message" binding:"required,notblank"`
	Response string `json:"response" binding:"required"`
}

// HistoryEntry is a chat exchange as returned by the history endpoint
type HistoryEntry struct {
	*ChatExchange
	ThinkingHTML string `json:"thinkingHtml,omitempty"`
	AnswerHTML   string `json:"answerHtml,omitempty"`
}

// Stats represents system statistics
type Stats struct {
	TotalBills int `json:"totalBills"`
	TotalChats int `json:"totalChats"`
}
