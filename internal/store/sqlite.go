package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/capitalize-ai/support-chat/internal/model"
)

// SQLite implements AgentStore, ConversationStore, and MessageStore on a
// single SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. WAL mode keeps concurrent readers off the writers' backs.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		temperature REAL NOT NULL DEFAULT 0.7,
		max_tokens INTEGER NOT NULL DEFAULT 1024,
		top_p REAL NOT NULL DEFAULT 1.0,
		is_active INTEGER NOT NULL DEFAULT 1,
		template TEXT NOT NULL DEFAULT '{}',
		domains TEXT NOT NULL DEFAULT '[]',
		file_refs TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(tenant_id, name)
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		visitor_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(agent_id, visitor_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		content TEXT NOT NULL,
		is_from_assistant INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_agent_visitor
		ON conversations(agent_id, visitor_id, updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// isUniqueViolation matches SQLite's constraint error text. modernc/sqlite
// surfaces it through the error string.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- AgentStore ---

func (s *SQLite) CreateAgent(ctx context.Context, agent *model.Agent) error {
	now := time.Now().UTC()
	if agent.ID == "" {
		agent.ID = uuid.Must(uuid.NewV7()).String()
	}
	agent.CreatedAt = now
	agent.UpdatedAt = now

	tpl, err := json.Marshal(agent.Template)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	domains, err := json.Marshal(emptyIfNil(agent.Domains))
	if err != nil {
		return fmt.Errorf("marshal domains: %w", err)
	}
	fileRefs, err := json.Marshal(emptyIfNil(agent.FileRefs))
	if err != nil {
		return fmt.Errorf("marshal file refs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agents (
			id, tenant_id, name, description, system_prompt, company_name,
			model, temperature, max_tokens, top_p, is_active,
			template, domains, file_refs, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.TenantID, agent.Name, agent.Description, agent.SystemPrompt,
		agent.CompanyName, agent.Model, agent.Temperature, agent.MaxTokens, agent.TopP,
		agent.IsActive, string(tpl), string(domains), string(fileRefs),
		agent.CreatedAt, agent.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("agent name %q already exists for tenant: %w", agent.Name, ErrConflict)
	}
	return err
}

func (s *SQLite) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, system_prompt, company_name,
		       model, temperature, max_tokens, top_p, is_active,
		       template, domains, file_refs, created_at, updated_at
		FROM agents WHERE id = ?`, id)

	var a model.Agent
	var tpl, domains, fileRefs string
	err := row.Scan(
		&a.ID, &a.TenantID, &a.Name, &a.Description, &a.SystemPrompt, &a.CompanyName,
		&a.Model, &a.Temperature, &a.MaxTokens, &a.TopP, &a.IsActive,
		&tpl, &domains, &fileRefs, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// A malformed blob is rejected, never guessed around.
	if err := json.Unmarshal([]byte(tpl), &a.Template); err != nil {
		return nil, fmt.Errorf("agent %s has invalid template blob: %w", id, err)
	}
	if err := json.Unmarshal([]byte(domains), &a.Domains); err != nil {
		return nil, fmt.Errorf("agent %s has invalid domains blob: %w", id, err)
	}
	if err := json.Unmarshal([]byte(fileRefs), &a.FileRefs); err != nil {
		return nil, fmt.Errorf("agent %s has invalid file refs blob: %w", id, err)
	}

	return &a, nil
}

func (s *SQLite) IsOwnedBy(ctx context.Context, agentID, tenantID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM agents WHERE id = ? AND tenant_id = ?`,
		agentID, tenantID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) UpdateTemplate(ctx context.Context, agentID string, tpl model.AntiHallucinationTemplate) error {
	blob, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	return s.updateAgentColumn(ctx, agentID, "template", string(blob))
}

func (s *SQLite) UpdateDomains(ctx context.Context, agentID string, domains []string) error {
	blob, err := json.Marshal(emptyIfNil(domains))
	if err != nil {
		return fmt.Errorf("marshal domains: %w", err)
	}
	return s.updateAgentColumn(ctx, agentID, "domains", string(blob))
}

func (s *SQLite) updateAgentColumn(ctx context.Context, agentID, column, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), agentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- ConversationStore ---

func (s *SQLite) CreateConversation(ctx context.Context, agentID, visitorID string) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		AgentID:   agentID,
		VisitorID: visitorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, agent_id, visitor_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.AgentID, conv.VisitorID, conv.CreatedAt, conv.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *SQLite) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, visitor_id, created_at, updated_at
		FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

func (s *SQLite) FindLatestByAgentAndVisitor(ctx context.Context, agentID, visitorID string) (*model.Conversation, error) {
	// Latest-updated wins when more than one row exists for the pair.
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, visitor_id, created_at, updated_at
		FROM conversations
		WHERE agent_id = ? AND visitor_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, agentID, visitorID)
	return scanConversation(row)
}

func (s *SQLite) TouchConversation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return err
}

func scanConversation(row *sql.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.AgentID, &c.VisitorID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- MessageStore ---

func (s *SQLite) AppendMessage(ctx context.Context, conversationID, content string, isFromAssistant bool) (*model.Message, error) {
	msg := &model.Message{
		ID:              uuid.Must(uuid.NewV7()).String(),
		ConversationID:  conversationID,
		Content:         content,
		IsFromAssistant: isFromAssistant,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, content, is_from_assistant, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Content, msg.IsFromAssistant, msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *SQLite) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	// UUIDv7 ids are time-ordered, so the id tiebreak keeps same-timestamp
	// turns in insert order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, content, is_from_assistant, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, id
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsFromAssistant, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
