package store

import (
	"context"
	"database/sql"
	"fmt"

	"appupdates/internal/domain"
)

// InfoMessage returns the info message, creating the empty row on first use.
func (s *Store) InfoMessage(ctx context.Context) (domain.InfoMessage, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO info_messages (id) VALUES (?)`, domain.InfoMessageID); err != nil {
		return domain.InfoMessage{}, fmt.Errorf("create info message: %w", err)
	}

	var (
		msg, id sql.NullString
		eol     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT message, message_id, end_of_life_version FROM info_messages WHERE id = ?`,
		domain.InfoMessageID,
	).Scan(&msg, &id, &eol)
	if err != nil {
		return domain.InfoMessage{}, fmt.Errorf("load info message: %w", err)
	}

	var m domain.InfoMessage
	if msg.Valid {
		m.Message = &msg.String
	}
	if id.Valid {
		m.MessageID = &id.String
	}
	if eol.Valid {
		v := int(eol.Int64)
		m.EndOfLifeVersion = &v
	}
	return m, nil
}

// SaveInfoMessage overwrites the info message row.
func (s *Store) SaveInfoMessage(ctx context.Context, m domain.InfoMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO info_messages (id, message, message_id, end_of_life_version) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   message = excluded.message,
		   message_id = excluded.message_id,
		   end_of_life_version = excluded.end_of_life_version`,
		domain.InfoMessageID, nullString(m.Message), nullString(m.MessageID), nullInt(m.EndOfLifeVersion),
	)
	if err != nil {
		return fmt.Errorf("save info message: %w", err)
	}
	return nil
}

// ToggleEndOfLife flips the end-of-life mark for code and returns the result.
func (s *Store) ToggleEndOfLife(ctx context.Context, code int) (domain.InfoMessage, error) {
	m, err := s.InfoMessage(ctx)
	if err != nil {
		return domain.InfoMessage{}, err
	}
	m.ToggleEndOfLife(code)
	if err := s.SaveInfoMessage(ctx, m); err != nil {
		return domain.InfoMessage{}, err
	}
	return m, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
