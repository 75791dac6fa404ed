package pipeline

import "errors"

var (
	// ErrProjectNotFound is returned when a chat or delete targets an unknown project
	ErrProjectNotFound = errors.New("project not found")

	// ErrSummaryFailed is returned when the model cannot produce a usable
	// structured summary; no partial analysis is persisted
	ErrSummaryFailed = errors.New("AI summary generation failed")

	// ErrChatFailed is returned when the responder fails; neither turn of
	// the exchange is persisted
	ErrChatFailed = errors.New("chat response generation failed")
)
