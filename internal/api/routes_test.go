package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/internal/auth"
	"github.com/fbconsulting/leadpilot/internal/websocket"
	"github.com/fbconsulting/leadpilot/usecase"
)

type memoryLeadRepo struct {
	leads []*entities.Lead
}

func (m *memoryLeadRepo) Upsert(ctx context.Context, lead *entities.Lead) error {
	copied := *lead
	m.leads = append(m.leads, &copied)
	return nil
}

func (m *memoryLeadRepo) GetByEmailDomain(ctx context.Context, domain string) (*entities.Lead, error) {
	return nil, nil
}

func (m *memoryLeadRepo) List(ctx context.Context, limit int) ([]*entities.Lead, error) {
	return m.leads, nil
}

func setupTestAPI(t *testing.T, leadRepo *memoryLeadRepo) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	conversations := usecase.NewConversationService(nil, nil, nil, leadRepo, nil, logger)
	hub := websocket.NewHub(conversations, logger)
	go hub.Run()

	e := echo.New()
	InitRoutes(e, hub, conversations, leadRepo, logger)
	return httptest.NewServer(e)
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestAskEndpoint(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	body := `{"prompt":"what services do you offer?"}`
	resp, err := http.Post(server.URL+"/api/gemini/ask", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var decoded AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if decoded.Text == "" {
		t.Error("Expected non-empty reply text")
	}
}

func TestAskEndpointRequiresPrompt(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/gemini", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestLeadsEndpointRequiresToken(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/leads")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestLeadsEndpointRejectsClientRole(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	token, err := auth.GenerateClientToken("client-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}
}

func TestLeadsEndpointWithAdminToken(t *testing.T) {
	repo := &memoryLeadRepo{}
	lead := entities.NewLead()
	lead.Email = "jane@acme.com"
	lead.Name = "Jane Doe"
	repo.Upsert(context.Background(), &lead)

	server := setupTestAPI(t, repo)
	defer server.Close()

	token, err := auth.GenerateAdminToken("ops")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var records []entities.Lead
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Jane Doe" {
		t.Errorf("Unexpected lead export: %+v", records)
	}
}

func TestTranscribeEndpointRequiresAudio(t *testing.T) {
	server := setupTestAPI(t, &memoryLeadRepo{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/gemini/transcribe", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}
