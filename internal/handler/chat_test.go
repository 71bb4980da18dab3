package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/support-chat/internal/handler"
	"github.com/capitalize-ai/support-chat/internal/llm"
	"github.com/capitalize-ai/support-chat/internal/middleware"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/prompt"
	"github.com/capitalize-ai/support-chat/internal/service"
	"github.com/capitalize-ai/support-chat/internal/store"
	"github.com/capitalize-ai/support-chat/pkg/logger"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, Model: req.Model, TokensIn: 10, TokensOut: 5}, nil
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Models() []string { return []string{"stub-model"} }

type testAPI struct {
	router *chi.Mux
	db     *store.SQLite
}

func newTestAPI(t *testing.T, client llm.Client) *testAPI {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	chatSvc := service.NewChatService(db, db, db, client, nil, time.Minute, log)
	agentSvc := service.NewAgentService(db, 20, client.Models(), log)

	chatHandler := handler.NewChatHandler(chatSvc, log)
	agentHandler := handler.NewAgentHandler(agentSvc, log)

	r := chi.NewRouter()
	// Tenant injected directly; JWT verification is covered by the auth
	// middleware itself.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.TenantIDKey, "tenant-1")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/v1/agents", func(r chi.Router) {
		r.Post("/", agentHandler.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", agentHandler.Get)
			r.Get("/risk", agentHandler.Risk)
			r.Put("/template", agentHandler.UpdateTemplate)
			r.Put("/domains", agentHandler.UpdateDomains)
			r.Post("/chat", chatHandler.Handle)
		})
	})

	return &testAPI{router: r, db: db}
}

func (a *testAPI) seedAgent(t *testing.T, active bool) *model.Agent {
	t.Helper()
	agent := &model.Agent{
		TenantID:     "tenant-1",
		Name:         "Support Bot " + uuid.NewString(),
		SystemPrompt: "Be helpful.",
		CompanyName:  "Acme",
		Model:        "stub-model",
		Temperature:  0.5,
		MaxTokens:    256,
		TopP:         1.0,
		IsActive:     active,
		Template:     prompt.DefaultTemplate(model.IntensityStrict),
	}
	require.NoError(t, a.db.CreateAgent(context.Background(), agent))
	return agent
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointSuccess(t *testing.T) {
	api := newTestAPI(t, &stubLLM{reply: "Here is your answer."})
	agent := api.seedAgent(t, true)

	rec := api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
		Message:   "Where is my order?",
		VisitorID: "visitor-v",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Here is your answer.", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, 15, resp.TokensUsed)

	// Second turn without an explicit id lands in the same conversation.
	rec = api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
		Message:   "Thanks!",
		VisitorID: "visitor-v",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var second model.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, resp.ConversationID, second.ConversationID)
}

func TestChatEndpointErrorMapping(t *testing.T) {
	t.Run("unknown agent is 404", func(t *testing.T) {
		api := newTestAPI(t, &stubLLM{reply: "ok"})
		rec := api.do(t, http.MethodPost, "/api/v1/agents/"+uuid.NewString()+"/chat", model.ChatRequest{
			Message:   "hi",
			VisitorID: "v",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive agent is 409", func(t *testing.T) {
		api := newTestAPI(t, &stubLLM{reply: "ok"})
		agent := api.seedAgent(t, false)
		rec := api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
			Message:   "hi",
			VisitorID: "v",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("foreign conversation id is 400", func(t *testing.T) {
		api := newTestAPI(t, &stubLLM{reply: "ok"})
		agent := api.seedAgent(t, true)
		rec := api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
			Message:        "hi",
			VisitorID:      "v",
			ConversationID: uuid.NewString(),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider failure is 502 with generic message", func(t *testing.T) {
		api := newTestAPI(t, &stubLLM{err: errors.New("quota exceeded")})
		agent := api.seedAgent(t, true)
		rec := api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
			Message:   "hi",
			VisitorID: "v",
		})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "quota exceeded")
	})

	t.Run("empty message is 400", func(t *testing.T) {
		api := newTestAPI(t, &stubLLM{reply: "ok"})
		agent := api.seedAgent(t, true)
		rec := api.do(t, http.MethodPost, "/api/v1/agents/"+agent.ID+"/chat", model.ChatRequest{
			VisitorID: "v",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDomainUpdateEndpoint(t *testing.T) {
	api := newTestAPI(t, &stubLLM{reply: "ok"})
	agent := api.seedAgent(t, true)

	rec := api.do(t, http.MethodPut, "/api/v1/agents/"+agent.ID+"/domains", model.UpdateDomainsRequest{
		Domains: []string{"example.com", "*.example.com"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "redundant")

	rec = api.do(t, http.MethodPut, "/api/v1/agents/"+agent.ID+"/domains", model.UpdateDomainsRequest{
		Domains: []string{"example.com", "other.com"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRiskEndpoint(t *testing.T) {
	api := newTestAPI(t, &stubLLM{reply: "ok"})
	agent := api.seedAgent(t, true)

	rec := api.do(t, http.MethodGet, "/api/v1/agents/"+agent.ID+"/risk", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var risk model.RiskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&risk))
	assert.Equal(t, prompt.RiskScore(agent.Template), risk.RiskScore)
	assert.False(t, risk.UnknownModel)
}

func TestUpdateTemplateEndpoint(t *testing.T) {
	api := newTestAPI(t, &stubLLM{reply: "ok"})
	agent := api.seedAgent(t, true)

	tpl := prompt.DefaultTemplate(model.IntensityUltraStrict)
	rec := api.do(t, http.MethodPut, "/api/v1/agents/"+agent.ID+"/template", tpl)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "risk_score")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/agents/"+agent.ID+"/template", bytes.NewBufferString("{broken"))
	rec2 := httptest.NewRecorder()
	api.router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec2.Code)
}
