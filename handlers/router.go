package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"readtrack/middleware"
)

// NewRouter builds the API router. REST endpoints sit behind the token
// middleware; the websocket endpoint stays open so UI clients can subscribe
// before authenticating.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/tiktok").Subrouter()
	api.Use(middleware.Auth)
	api.HandleFunc("/messages", IngestStatus).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageId}/read", MarkMessageRead).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageId}/status", GetMessageStatus).Methods(http.MethodGet)
	api.HandleFunc("/messages/{messageId}/receipts", GetReadReceipts).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversationId}/read", MarkConversationRead).Methods(http.MethodPost)

	r.HandleFunc("/ws", HandleSocket)

	return r
}
