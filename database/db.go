package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"readtrack/models"
)

var DB *sql.DB

// Initialize sets up the database connection and creates tables
func Initialize(path string) error {
	var err error
	DB, err = sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite handles one writer at a time
	DB.SetMaxOpenConns(1)

	return createTables()
}

// Close releases the database connection.
func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

func createTables() error {
	tables := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY,
		conversation_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'sent',
		sent_at TIMESTAMP,
		delivered_at TIMESTAMP,
		read_at TIMESTAMP,
		failed_at TIMESTAMP,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS read_receipts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		read_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(message_id, user_id),
		FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_message ON read_receipts(message_id);
	`

	_, err := DB.Exec(tables)
	return err
}

// Message status queries

// UpsertMessageStatus records a status update for a message, creating the
// row on first sight. Fields absent from the event keep their stored value.
func UpsertMessageStatus(ev models.StatusEvent) error {
	_, err := DB.Exec(
		`INSERT INTO messages (id, conversation_id, status, sent_at, delivered_at, read_at, failed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			status = COALESCE(NULLIF(excluded.status, ''), messages.status),
			sent_at = COALESCE(excluded.sent_at, messages.sent_at),
			delivered_at = COALESCE(excluded.delivered_at, messages.delivered_at),
			read_at = COALESCE(excluded.read_at, messages.read_at),
			failed_at = COALESCE(excluded.failed_at, messages.failed_at),
			error = COALESCE(excluded.error, messages.error)`,
		ev.MessageID, ev.ConversationID, ev.Status,
		ev.SentAt, ev.DeliveredAt, ev.ReadAt, ev.FailedAt, ev.Error,
	)
	return err
}

// GetMessageStatus retrieves the delivery status of a message along with its
// conversation id.
func GetMessageStatus(messageID int64) (*models.DeliveryStatus, int64, error) {
	var (
		st             models.DeliveryStatus
		conversationID int64
		sentAt         sql.NullTime
		deliveredAt    sql.NullTime
		readAt         sql.NullTime
		failedAt       sql.NullTime
		errText        sql.NullString
	)
	err := DB.QueryRow(
		"SELECT conversation_id, status, sent_at, delivered_at, read_at, failed_at, error FROM messages WHERE id = ?",
		messageID,
	).Scan(&conversationID, &st.Status, &sentAt, &deliveredAt, &readAt, &failedAt, &errText)
	if err != nil {
		return nil, 0, err
	}

	if sentAt.Valid {
		st.SentAt = &sentAt.Time
	}
	if deliveredAt.Valid {
		st.DeliveredAt = &deliveredAt.Time
	}
	if readAt.Valid {
		st.ReadAt = &readAt.Time
	}
	if failedAt.Valid {
		st.FailedAt = &failedAt.Time
	}
	if errText.Valid {
		st.Error = &errText.String
	}

	readBy, err := getReaderIDs(messageID)
	if err != nil {
		return nil, 0, err
	}
	st.ReadBy = readBy

	return &st, conversationID, nil
}

// MarkMessageRead marks one message read, records a receipt for the reader
// when a user id is supplied, and returns the resulting status event.
// Already-read messages keep their original read_at.
func MarkMessageRead(messageID, userID int64) (*models.StatusEvent, error) {
	res, err := DB.Exec(
		"UPDATE messages SET status = ?, read_at = COALESCE(read_at, datetime('now')) WHERE id = ?",
		models.StatusRead, messageID,
	)
	if err != nil {
		return nil, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, sql.ErrNoRows
	}

	if userID != 0 {
		_, err = DB.Exec(
			"INSERT OR IGNORE INTO read_receipts (message_id, user_id) VALUES (?, ?)",
			messageID, userID,
		)
		if err != nil {
			return nil, err
		}
	}

	st, conversationID, err := GetMessageStatus(messageID)
	if err != nil {
		return nil, err
	}
	return &models.StatusEvent{
		ConversationID: conversationID,
		MessageID:      messageID,
		DeliveryStatus: *st,
	}, nil
}

// MarkConversationRead marks every unread message in a conversation read and
// returns one status event per affected message.
func MarkConversationRead(conversationID, userID int64) ([]models.StatusEvent, error) {
	rows, err := DB.Query(
		"SELECT id FROM messages WHERE conversation_id = ? AND status != ?",
		conversationID, models.StatusRead,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var events []models.StatusEvent
	for _, id := range ids {
		ev, err := MarkMessageRead(id, userID)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, nil
}

// GetReadReceipts retrieves the per-user read receipts for a message.
func GetReadReceipts(messageID int64) ([]models.ReadReceipt, error) {
	rows, err := DB.Query(
		"SELECT user_id, read_at FROM read_receipts WHERE message_id = ? ORDER BY read_at",
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []models.ReadReceipt
	for rows.Next() {
		var rc models.ReadReceipt
		if err := rows.Scan(&rc.UserID, &rc.ReadAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, rc)
	}
	return receipts, rows.Err()
}

func getReaderIDs(messageID int64) ([]int64, error) {
	rows, err := DB.Query(
		"SELECT user_id FROM read_receipts WHERE message_id = ? ORDER BY user_id",
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
