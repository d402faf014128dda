package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/crew-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
	"github.com/spec-kit/crew-ticket-service/internal/config"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
	"github.com/spec-kit/crew-ticket-service/internal/lock"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	"github.com/spec-kit/crew-ticket-service/internal/servicetest"
	"github.com/spec-kit/crew-ticket-service/internal/tags"
)

const webhookSecret = "hook-secret"

type testServer struct {
	app    *fiber.App
	store  *servicetest.Store
	gw     *servicetest.Gateway
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := servicetest.NewStore()
	gw := servicetest.NewGateway()
	servicetest.Seed(store, gw)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locker := lock.NewLocalLocker()
	resolver := tags.NewResolver(store.TeamRepo(), nil, 0, logger)

	members := service.NewCrewMemberService(service.CrewMemberDependencies{
		CrewRepo:   store.CrewRepo(),
		MemberRepo: store.MemberRepo(),
		Gateway:    gw,
		Locker:     locker,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.TicketRepo(),
		CrewRepo:      store.CrewRepo(),
		TeamRepo:      store.TeamRepo(),
		MemberRepo:    store.MemberRepo(),
		HistoryRepo:   store.HistoryRepo(),
		Tags:          resolver,
		Gateway:       gw,
		Members:       members,
		Locker:        locker,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		Config:        config.TicketConfig{AllowMoveFromTerminal: true},
		BotIdentityID: "BOT",
	})
	registry := service.NewCrewService(service.CrewDependencies{
		TeamRepo: store.TeamRepo(),
		CrewRepo: store.CrewRepo(),
		Tags:     resolver,
		Members:  members,
		Logger:   logger,
		Metrics:  metrics,
	})

	hash, err := auth.HashSecret(webhookSecret, bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("router-test-secret", 60)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:            handlers.NewHealthHandler("crew-ticket-service", "test", nil, metrics),
		Tickets:           handlers.NewTicketsHandler(tickets),
		Crews:             handlers.NewCrewsHandler(registry),
		Members:           handlers.NewMembersHandler(members),
		Events:            handlers.NewEventsHandler(tickets, members),
		AuthMiddleware:    auth.NewAuthMiddleware(tokens),
		Admins:            members,
		WebhookSecretHash: hash,
	})

	return &testServer{app: app, store: store, gw: gw, tokens: tokens}
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Warnings []struct {
		Step  string `json:"step"`
		Error string `json:"error"`
	} `json:"warnings"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, identityID string, body any, headers ...string) (int, envelope) {
	t.Helper()
	return s.doAs(t, "O1", method, path, identityID, body, headers...)
}

// doAs issues the request with a token scoped to organizationID.
func (s *testServer) doAs(t *testing.T, organizationID, method, path, identityID string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if identityID != "" {
		token, _, err := s.tokens.GenerateToken(identityID, organizationID)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(fiber.MethodGet, "/health/live", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-log/tickets", "", map[string]string{"name": "x", "content": "y"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodGet, "/nowhere", "U1", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-log/tickets", "U1", map[string]string{
		"name":    "Resupply",
		"content": "Need fuel",
	})
	require.Equal(t, fiber.StatusCreated, status)
	created := decode[map[string]any](t, env.Data)
	assert.Equal(t, "T1", created["thread_id"])
	assert.Equal(t, "TRIAGE", created["status"])
	assert.Equal(t, "U1", created["created_by"])

	status, env = srv.do(t, fiber.MethodPost, "/tickets/T1/actions/accept", "U2", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ticket is now accepted", env.Message)
	assert.Equal(t, "ACCEPTED", decode[map[string]any](t, env.Data)["status"])

	status, env = srv.do(t, fiber.MethodPost, "/tickets/T1/actions/done", "U2", map[string]string{"reason": "delivered"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ticket is now done", env.Message)

	status, env = srv.do(t, fiber.MethodGet, "/tickets/T1/history", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)
	history := decode[[]map[string]any](t, env.Data)
	assert.Len(t, history, 2)

	status, env = srv.do(t, fiber.MethodPost, "/tickets/T1/close", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, decode[map[string]any](t, env.Data)["closed_at"])
}

func TestUnknownActionIsValidationError(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/tickets/T1/actions/explode", "U1", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "explode", env.Error.Details["action"])
}

func TestCreateTicketRequiresFields(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-log/tickets", "U1", map[string]string{"name": "Resupply"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestMoveOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodPost, "/crews/crew-log/tickets", "U1", map[string]string{"name": "Resupply", "content": "Need fuel"})
	require.Equal(t, fiber.StatusCreated, status)

	status, env := srv.do(t, fiber.MethodPost, "/tickets/T1/move", "U2", map[string]string{"crew_id": "crew-med"})
	require.Equal(t, fiber.StatusCreated, status)
	moved := decode[map[string]map[string]any](t, env.Data)
	assert.Equal(t, "MOVED", moved["source"]["status"])
	assert.Equal(t, "crew-med", moved["ticket"]["crew_id"])
	assert.Equal(t, "T1", moved["ticket"]["previous_thread_id"])

	status, env = srv.do(t, fiber.MethodGet, "/tickets/T2/chain", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)
	chain := decode[[]map[string]any](t, env.Data)
	require.Len(t, chain, 2)
}

func TestCrewRegistrationRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]any{"id": "crew-eng", "team_id": "team-1", "name": "Engineering Crew", "short_name": "ENG", "role_id": "R-ENG"}

	status, env := srv.do(t, fiber.MethodPost, "/crews", "U1", body)
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = srv.do(t, fiber.MethodPost, "/crews", "ADMIN", body)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "crew-eng", decode[map[string]any](t, env.Data)["id"])

	owner, ok := srv.store.Member("crew-eng", "ADMIN")
	require.True(t, ok)
	assert.Equal(t, "owner", owner.Access.String())
}

func TestMemberSelfRegistration(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Registered as member", env.Message)

	status, env = srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", map[string]string{"access": "subscriber"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Upgraded to subscriber", env.Message)

	status, env = srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", map[string]string{"access": "member"})
	assert.Equal(t, fiber.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "You are already a subscriber of Logistics Crew", env.Error.Message)

	status, env = srv.do(t, fiber.MethodGet, "/crews/crew-log/members", "U2", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)
}

func TestRegisteringOthersRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", map[string]string{"identity_id": "U2"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", map[string]string{"access": "owner"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "ADMIN", map[string]string{"identity_id": "U2", "access": "owner"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestInvalidAccessRank(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", map[string]string{"access": "captain"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "captain", env.Error.Details["access"])
}

func TestMemberRemoval(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = srv.do(t, fiber.MethodDelete, "/crews/crew-log/members/U1", "U2", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = srv.do(t, fiber.MethodDelete, "/crews/crew-log/members/U1", "U1", nil)
	assert.Equal(t, fiber.StatusOK, status)
	_, ok := srv.store.Member("crew-log", "U1")
	assert.False(t, ok)
}

func TestEventsRequireWebhookSecret(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]string{"organization_id": "O1", "identity_id": "U1"}

	status, _ := srv.do(t, fiber.MethodPost, "/events/member-departed", "", body)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = srv.do(t, fiber.MethodPost, "/events/member-departed", "", body, auth.WebhookSecretHeader, "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env := srv.do(t, fiber.MethodPost, "/events/member-departed", "", body, auth.WebhookSecretHeader, webhookSecret)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, decode[map[string]any](t, env.Data)["removed"])
}

func TestThreadUpdatedEventClosesTicket(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodPost, "/crews/crew-log/tickets", "U1", map[string]string{"name": "Resupply", "content": "Need fuel"})
	require.Equal(t, fiber.StatusCreated, status)

	status, env := srv.do(t, fiber.MethodPost, "/events/thread-updated", "", map[string]any{
		"thread_id":     "T1",
		"previous_tags": []string{"tag-triage"},
		"current_tags":  []string{"tag-done"},
	}, auth.WebhookSecretHeader, webhookSecret)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, decode[map[string]any](t, env.Data)["closed"])

	status, env = srv.do(t, fiber.MethodGet, "/tickets/T1", "U1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, decode[map[string]any](t, env.Data)["closed_at"])
}

func TestAdminOfAnotherOrganizationCannotManageCrew(t *testing.T) {
	srv := newTestServer(t)
	// ADMIN administers O1 and is a plain member of O2.
	srv.gw.AddIdentity("O2", gateway.Identity{ID: "ADMIN", DisplayName: "admin"})

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"register owner", fiber.MethodPost, "/crews/crew-far/members", map[string]string{"access": "owner"}},
		{"register other", fiber.MethodPost, "/crews/crew-far/members", map[string]string{"identity_id": "U3", "access": "owner"}},
		{"update member", fiber.MethodPatch, "/crews/crew-far/members/U3", map[string]string{"access": "member"}},
		{"remove member", fiber.MethodDelete, "/crews/crew-far/members/U3", nil},
		{"update crew", fiber.MethodPatch, "/crews/crew-far", map[string]string{"name": "Taken"}},
		{"delete crew", fiber.MethodDelete, "/crews/crew-far", nil},
		{"team tags", fiber.MethodPut, "/teams/team-2/tags", map[string]any{"tags": []string{}}},
		{"register crew", fiber.MethodPost, "/crews", map[string]any{"id": "crew-x", "team_id": "team-2", "name": "X Crew", "short_name": "X", "role_id": "R-X"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := srv.do(t, tc.method, tc.path, "ADMIN", tc.body)
			assert.Equal(t, fiber.StatusForbidden, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, "FORBIDDEN", env.Error.Code)
		})
	}

	_, ok := srv.store.Member("crew-far", "ADMIN")
	assert.False(t, ok)
	srv.store.Mu.Lock()
	far := srv.store.Crews["crew-far"]
	_, created := srv.store.Crews["crew-x"]
	srv.store.Mu.Unlock()
	assert.Equal(t, "Far Crew", far.Name)
	assert.Nil(t, far.DeletedAt)
	assert.False(t, created)
}

func TestSelfRegistrationRejectsForeignCrew(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, fiber.MethodPost, "/crews/crew-far/members", "U3", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "This resource belongs to another organization", env.Error.Message)
	_, ok := srv.store.Member("crew-far", "U3")
	assert.False(t, ok)

	status, _ = srv.doAs(t, "O2", fiber.MethodPost, "/crews/crew-far/members", "U3", nil)
	require.Equal(t, fiber.StatusOK, status)
	_, ok = srv.store.Member("crew-far", "U3")
	assert.True(t, ok)
}

func TestOrganizationAdminManagesOwnCrew(t *testing.T) {
	srv := newTestServer(t)
	srv.gw.AddIdentity("O2", gateway.Identity{ID: "BOSS", DisplayName: "boss", IsAdmin: true})

	status, _ := srv.doAs(t, "O2", fiber.MethodPatch, "/crews/crew-far", "BOSS", map[string]string{"name": "Frontier Crew"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = srv.doAs(t, "O2", fiber.MethodDelete, "/crews/crew-far", "BOSS", nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestDeleteCrewRemovesMembers(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodPost, "/crews/crew-log/members", "U2", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, srv.gw.Identity("O1", "U2").HasRole("R-LOG"))

	status, env := srv.do(t, fiber.MethodDelete, "/crews/crew-log", "ADMIN", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Crew deleted", env.Message)
	assert.EqualValues(t, 1, decode[map[string]any](t, env.Data)["members_removed"])
	assert.Empty(t, env.Warnings)

	_, ok := srv.store.Member("crew-log", "U2")
	assert.False(t, ok)
	assert.False(t, srv.gw.Identity("O1", "U2").HasRole("R-LOG"))
}
