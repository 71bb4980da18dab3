package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/support-chat/internal/llm"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/store"
)

type fakeAgentStore struct {
	mu     sync.Mutex
	agents map[string]*model.Agent
}

func newFakeAgentStore(agents ...*model.Agent) *fakeAgentStore {
	s := &fakeAgentStore{agents: make(map[string]*model.Agent)}
	for _, a := range agents {
		s.agents[a.ID] = a
	}
	return s
}

func (s *fakeAgentStore) CreateAgent(ctx context.Context, agent *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.agents {
		if existing.TenantID == agent.TenantID && existing.Name == agent.Name {
			return store.ErrConflict
		}
	}
	if agent.ID == "" {
		agent.ID = uuid.Must(uuid.NewV7()).String()
	}
	s.agents[agent.ID] = agent
	return nil
}

func (s *fakeAgentStore) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAgentStore) IsOwnedBy(ctx context.Context, agentID, tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	return ok && a.TenantID == tenantID, nil
}

func (s *fakeAgentStore) UpdateTemplate(ctx context.Context, agentID string, tpl model.AntiHallucinationTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return store.ErrNotFound
	}
	a.Template = tpl
	return nil
}

func (s *fakeAgentStore) UpdateDomains(ctx context.Context, agentID string, domains []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return store.ErrNotFound
	}
	a.Domains = domains
	return nil
}

type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	// conflictNext simulates losing a creation race: the next Create call
	// inserts the "winner" row on behalf of the other writer and reports
	// store.ErrConflict.
	conflictNext bool
	created      int
}

func newFakeConversationStore(conversations ...*model.Conversation) *fakeConversationStore {
	s := &fakeConversationStore{conversations: make(map[string]*model.Conversation)}
	for _, c := range conversations {
		s.conversations[c.ID] = c
	}
	return s
}

func (s *fakeConversationStore) CreateConversation(ctx context.Context, agentID, visitorID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		AgentID:   agentID,
		VisitorID: visitorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.conflictNext {
		s.conflictNext = false
		s.conversations[conv.ID] = conv
		return nil, store.ErrConflict
	}
	s.conversations[conv.ID] = conv
	s.created++
	return conv, nil
}

func (s *fakeConversationStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *fakeConversationStore) FindLatestByAgentAndVisitor(ctx context.Context, agentID, visitorID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*model.Conversation
	for _, c := range s.conversations {
		if c.AgentID == agentID && c.VisitorID == visitorID {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, store.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	copied := *matches[0]
	return &copied, nil
}

func (s *fakeConversationStore) TouchConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []model.Message
}

func (s *fakeMessageStore) AppendMessage(ctx context.Context, conversationID, content string, isFromAssistant bool) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:              uuid.Must(uuid.NewV7()).String(),
		ConversationID:  conversationID,
		Content:         content,
		IsFromAssistant: isFromAssistant,
		CreatedAt:       time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeMessageStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeLLM struct {
	reply     string
	tokensIn  int
	tokensOut int
	err       error
	lastReq   *llm.CompletionRequest
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{
		Content:   f.reply,
		Model:     req.Model,
		TokensIn:  f.tokensIn,
		TokensOut: f.tokensOut,
	}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Models() []string { return []string{"fake-model-1"} }

type fakeEvents struct {
	mu     sync.Mutex
	events []*model.TurnEvent
}

func (f *fakeEvents) PublishTurnEvent(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return uint64(len(f.events)), nil
}

var errBoom = errors.New("boom")
