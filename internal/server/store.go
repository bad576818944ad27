package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blogmsg/pkg/messaging/types"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	content TEXT NOT NULL,
	message_type TEXT NOT NULL,
	attachment_url TEXT NOT NULL DEFAULT '',
	attachment_filename TEXT NOT NULL DEFAULT '',
	attachment_size INTEGER NOT NULL DEFAULT 0,
	attachment_mime_type TEXT NOT NULL DEFAULT '',
	is_read INTEGER NOT NULL DEFAULT 0,
	read_at TIMESTAMP,
	is_recalled INTEGER NOT NULL DEFAULT 0,
	recalled_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(recipient_id, is_read);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT ''
);
`

// Store persists messages and participant profiles for the dev server.
type Store struct {
	db        *sql.DB
	encryptor *encryptor
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Store{db: db, encryptor: enc}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMessage inserts a new message row.
func (s *Store) SaveMessage(ctx context.Context, m *types.Message) error {
	content, err := s.encryptor.Encrypt(m.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt content: %w", err)
	}
	filename, err := s.encryptor.Encrypt(m.AttachmentFilename)
	if err != nil {
		return fmt.Errorf("failed to encrypt attachment filename: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, thread_id, sender_id, recipient_id, content, message_type,
			attachment_url, attachment_filename, attachment_size, attachment_mime_type,
			is_read, is_recalled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		m.ID, m.ThreadID, m.SenderID, m.RecipientID, content, m.MessageType,
		m.AttachmentURL, filename, m.AttachmentSize, m.AttachmentMimeType,
		m.CreatedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetMessage returns a message by id, or nil when absent.
func (s *Store) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, sender_id, recipient_id, content, message_type,
			attachment_url, attachment_filename, attachment_size, attachment_mime_type,
			is_read, read_at, is_recalled, recalled_at, created_at
		FROM messages WHERE id = ?`, id)

	m, err := s.scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// ListThreadMessages returns one newest-first page of a thread's history and
// the total page count.
func (s *Store) ListThreadMessages(ctx context.Context, threadID string, page, pageSize int) ([]types.Message, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = ?`, threadID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count thread messages: %w", err)
	}
	totalPages := (total + pageSize - 1) / pageSize

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, sender_id, recipient_id, content, message_type,
			attachment_url, attachment_filename, attachment_size, attachment_mime_type,
			is_read, read_at, is_recalled, recalled_at, created_at
		FROM messages WHERE thread_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, threadID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list thread messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		m, err := s.scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate thread messages: %w", err)
	}

	return messages, totalPages, nil
}

// MarkRecalled flips the recalled flag on a message.
func (s *Store) MarkRecalled(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_recalled = 1, recalled_at = ?, updated_at = ?
		WHERE id = ?`, at, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark message recalled: %w", err)
	}
	return nil
}

// UpdateResend republishes a recalled message under the same id with new
// content, attachment and type. The read flag is deliberately untouched.
func (s *Store) UpdateResend(ctx context.Context, id string, req *types.ResendMessageRequest, at time.Time) error {
	content, err := s.encryptor.Encrypt(req.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt content: %w", err)
	}
	filename, err := s.encryptor.Encrypt(req.AttachmentFilename)
	if err != nil {
		return fmt.Errorf("failed to encrypt attachment filename: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE messages SET
			content = ?, message_type = ?,
			attachment_url = ?, attachment_filename = ?, attachment_size = ?, attachment_mime_type = ?,
			is_recalled = 0, recalled_at = NULL, updated_at = ?
		WHERE id = ?`,
		content, req.MessageType,
		req.AttachmentURL, filename, req.AttachmentSize, req.AttachmentMimeType,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// MarkThreadRead marks every unread message addressed to recipientID in the
// thread as read. Idempotent: already-read rows are untouched and read_at is
// never cleared.
func (s *Store) MarkThreadRead(ctx context.Context, threadID, recipientID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1, read_at = ?, updated_at = ?
		WHERE thread_id = ? AND recipient_id = ? AND is_read = 0`,
		at, at, threadID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark thread read: %w", err)
	}
	return nil
}

// CountUnread counts unread messages addressed to the user. Recalled messages
// still count; recalling does not change unread state.
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = ? AND is_read = 0`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// UpsertUser stores a participant profile snapshot.
func (s *Store) UpsertUser(ctx context.Context, u *types.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, avatar) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username,
			display_name = excluded.display_name, avatar = excluded.avatar`,
		u.ID, u.Username, u.DisplayName, u.Avatar)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser returns a profile snapshot, or a bare id-only profile when the auth
// collaborator never synced one.
func (s *Store) GetUser(ctx context.Context, id string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, avatar FROM users WHERE id = ?`, id)

	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Avatar)
	if err == sql.ErrNoRows {
		return &types.User{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanMessage(row scanner) (*types.Message, error) {
	var (
		m          types.Message
		isRead     int
		isRecalled int
		readAt     sql.NullTime
		recalledAt sql.NullTime
	)

	err := row.Scan(
		&m.ID, &m.ThreadID, &m.SenderID, &m.RecipientID, &m.Content, &m.MessageType,
		&m.AttachmentURL, &m.AttachmentFilename, &m.AttachmentSize, &m.AttachmentMimeType,
		&isRead, &readAt, &isRecalled, &recalledAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Content, err = s.encryptor.Decrypt(m.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}
	m.AttachmentFilename, err = s.encryptor.Decrypt(m.AttachmentFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt attachment filename: %w", err)
	}

	m.IsRead = isRead == 1
	m.IsRecalled = isRecalled == 1
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	if recalledAt.Valid {
		t := recalledAt.Time
		m.RecalledAt = &t
	}

	return &m, nil
}
