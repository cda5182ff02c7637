package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/a-h/ragtutor/transcript"
	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

// Queries stores chat transcripts in rqlite.
type Queries struct {
	conn *gorqlite.Connection
}

var _ transcript.Store = (*Queries)(nil)

func (q *Queries) CreateSession(ctx context.Context, s transcript.Session) (err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `insert into chat_session (id, owner, created_at) values (?, ?, ?)`,
		Arguments: []any{s.ID, s.Owner, s.CreatedAt},
	}
	if _, err = q.conn.WriteOneParameterizedContext(ctx, stmt); err != nil {
		return fmt.Errorf("db: create session failed: %w", err)
	}
	return nil
}

func (q *Queries) GetSession(ctx context.Context, id string) (s transcript.Session, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select id, owner, created_at from chat_session where id = ?`,
		Arguments: []any{id},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return s, false, fmt.Errorf("db: get session failed: %w", err)
	}
	if !result.Next() {
		return s, false, nil
	}
	if err = result.Scan(&s.ID, &s.Owner, &s.CreatedAt); err != nil {
		return s, false, fmt.Errorf("db: get session scan failed: %w", err)
	}
	return s, true, nil
}

// AddMessages writes the messages in a single request, so rqlite applies them
// in order.
func (q *Queries) AddMessages(ctx context.Context, msgs []transcript.Message) (err error) {
	if len(msgs) == 0 {
		return nil
	}
	statements := make([]gorqlite.ParameterizedStatement, len(msgs))
	for i, msg := range msgs {
		metadata := string(msg.Metadata)
		if metadata == "" {
			metadata = "{}"
		}
		statements[i] = gorqlite.ParameterizedStatement{
			Query:     `insert into chat_message (id, session_id, role, content, metadata, created_at) values (?, ?, ?, ?, ?, ?)`,
			Arguments: []any{msg.ID, msg.SessionID, string(msg.Role), msg.Content, metadata, msg.CreatedAt},
		}
	}
	if _, err = q.conn.WriteParameterizedContext(ctx, statements); err != nil {
		return fmt.Errorf("db: add messages failed: %w", err)
	}
	return nil
}

func (q *Queries) Messages(ctx context.Context, sessionID string) (msgs []transcript.Message, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select id, session_id, role, content, metadata, created_at from chat_message where session_id = ? order by rowid asc`,
		Arguments: []any{sessionID},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("db: get messages failed: %w", err)
	}
	for result.Next() {
		var msg transcript.Message
		var role, metadata string
		var createdAt time.Time
		if err = result.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("db: get messages scan failed: %w", err)
		}
		msg.Role = transcript.Role(role)
		msg.Metadata = json.RawMessage(metadata)
		msg.CreatedAt = createdAt
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
