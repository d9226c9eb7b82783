package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"readtrack/database"
	"readtrack/models"
)

// MarkMessageRead marks one message as read and pushes the resulting status
// to the conversation's subscribers. The optional user_id query parameter
// identifies the reader for the receipt record.
func MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	messageID, ok := pathID(w, r, "messageId")
	if !ok {
		return
	}
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)

	ev, err := database.MarkMessageRead(messageID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, `{"error": "Message not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "Failed to mark as read"}`, http.StatusInternalServerError)
		return
	}

	BroadcastStatus(*ev)

	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// MarkConversationRead marks every message in a conversation as read,
// pushing one status update per affected message.
func MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	conversationID, ok := pathID(w, r, "conversationId")
	if !ok {
		return
	}
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)

	events, err := database.MarkConversationRead(conversationID, userID)
	if err != nil {
		http.Error(w, `{"error": "Failed to mark as read"}`, http.StatusInternalServerError)
		return
	}

	for _, ev := range events {
		BroadcastStatus(ev)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"marked":  len(events),
	})
}

// GetMessageStatus returns the current delivery status of one message.
func GetMessageStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	messageID, ok := pathID(w, r, "messageId")
	if !ok {
		return
	}

	st, _, err := database.GetMessageStatus(messageID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, `{"error": "Message not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "Failed to get status"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]*models.DeliveryStatus{"status": st})
}

// GetReadReceipts returns the per-user read receipts for one message.
func GetReadReceipts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	messageID, ok := pathID(w, r, "messageId")
	if !ok {
		return
	}

	receipts, err := database.GetReadReceipts(messageID)
	if err != nil {
		http.Error(w, `{"error": "Failed to get receipts"}`, http.StatusInternalServerError)
		return
	}
	if receipts == nil {
		receipts = []models.ReadReceipt{}
	}

	json.NewEncoder(w).Encode(map[string][]models.ReadReceipt{"receipts": receipts})
}

// IngestStatus records a delivery-status update from the messaging pipeline
// (message sent, delivered to a device, failed) and pushes the merged state
// to subscribers.
func IngestStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var ev models.StatusEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if ev.MessageID == 0 || ev.ConversationID == 0 {
		http.Error(w, `{"error": "messageId and conversationId are required"}`, http.StatusBadRequest)
		return
	}

	if ev.Status == "" {
		ev.Status = models.StatusSent
	}
	if ev.Status == models.StatusSent && ev.SentAt == nil {
		now := time.Now().UTC()
		ev.SentAt = &now
	}

	if err := database.UpsertMessageStatus(ev); err != nil {
		http.Error(w, `{"error": "Failed to record status"}`, http.StatusInternalServerError)
		return
	}

	st, conversationID, err := database.GetMessageStatus(ev.MessageID)
	if err != nil {
		http.Error(w, `{"error": "Failed to record status"}`, http.StatusInternalServerError)
		return
	}
	merged := models.StatusEvent{
		ConversationID: conversationID,
		MessageID:      ev.MessageID,
		DeliveryStatus: *st,
	}

	BroadcastStatus(merged)

	json.NewEncoder(w).Encode(merged)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		http.Error(w, `{"error": "Invalid `+name+`"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
