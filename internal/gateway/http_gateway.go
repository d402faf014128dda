package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/config"
)

// StatusError is a non-2xx gateway response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// HTTPGateway talks to the platform bridge over JSON/HTTP. Reads are retried
// up to ReadRetries times on transport errors and 5xx responses; mutations
// are attempted exactly once.
type HTTPGateway struct {
	baseURL string
	token   string
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// NewHTTPGateway builds a gateway client from configuration.
func NewHTTPGateway(cfg config.GatewayConfig, logger *zap.Logger) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := cfg.ReadRetries
	if retries < 0 {
		retries = 0
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout(),
		retries: retries,
		backoff: 200 * time.Millisecond,
		logger:  logger,
	}
}

func (g *HTTPGateway) FetchOrganization(ctx context.Context, organizationID string) (*Organization, error) {
	var org Organization
	if err := g.read(ctx, join("organizations", organizationID), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (g *HTTPGateway) FetchIdentity(ctx context.Context, organizationID, identityID string) (*Identity, error) {
	var identity Identity
	if err := g.read(ctx, join("organizations", organizationID, "identities", identityID), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (g *HTTPGateway) FetchChannel(ctx context.Context, organizationID, channelID string) (*Channel, error) {
	var channel Channel
	if err := g.read(ctx, join("organizations", organizationID, "channels", channelID), &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (g *HTTPGateway) CanView(ctx context.Context, organizationID, channelID, identityID string) (bool, error) {
	var resp struct {
		CanView bool `json:"can_view"`
	}
	path := join("organizations", organizationID, "channels", channelID, "permissions", identityID)
	if err := g.read(ctx, path, &resp); err != nil {
		return false, err
	}
	return resp.CanView, nil
}

func (g *HTTPGateway) FetchThread(ctx context.Context, forumID, threadID string) (*Thread, error) {
	var thread Thread
	if err := g.read(ctx, join("forums", forumID, "threads", threadID), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (g *HTTPGateway) CreateThreadWithMessage(ctx context.Context, forumID string, draft ThreadDraft, tags []string) (string, error) {
	body := struct {
		ThreadDraft
		AppliedTags []string `json:"applied_tags"`
	}{ThreadDraft: draft, AppliedTags: tags}

	var resp struct {
		ID string `json:"id"`
	}
	if err := g.write(ctx, fiber.MethodPost, join("forums", forumID, "threads"), body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("gateway: thread created without id")
	}
	return resp.ID, nil
}

func (g *HTTPGateway) EditMessage(ctx context.Context, threadID, messageID string, payload MessagePayload) error {
	return g.write(ctx, fiber.MethodPatch, join("threads", threadID, "messages", messageID), payload, nil)
}

func (g *HTTPGateway) SendMessage(ctx context.Context, channelID string, payload MessagePayload) error {
	return g.write(ctx, fiber.MethodPost, join("channels", channelID, "messages"), payload, nil)
}

func (g *HTTPGateway) SendDirectMessage(ctx context.Context, identityID string, payload MessagePayload) error {
	return g.write(ctx, fiber.MethodPost, join("identities", identityID, "messages"), payload, nil)
}

func (g *HTTPGateway) GrantRole(ctx context.Context, organizationID, identityID, roleID string) error {
	return g.write(ctx, fiber.MethodPut, join("organizations", organizationID, "identities", identityID, "roles", roleID), nil, nil)
}

func (g *HTTPGateway) RevokeRole(ctx context.Context, organizationID, identityID, roleID string) error {
	err := g.write(ctx, fiber.MethodDelete, join("organizations", organizationID, "identities", identityID, "roles", roleID), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return ErrRoleNotHeld
	}
	return err
}

func (g *HTTPGateway) SetThreadTags(ctx context.Context, threadID string, tags []string) error {
	body := map[string][]string{"applied_tags": tags}
	return g.write(ctx, fiber.MethodPut, join("threads", threadID, "tags"), body, nil)
}

func (g *HTTPGateway) ArchiveAndLock(ctx context.Context, threadID string) error {
	body := map[string]bool{"archived": true, "locked": true}
	return g.write(ctx, fiber.MethodPost, join("threads", threadID, "archive"), body, nil)
}

func (g *HTTPGateway) read(ctx context.Context, path string, out any) error {
	var err error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.backoff * time.Duration(attempt)):
			}
		}
		err = g.do(ctx, fiber.MethodGet, path, nil, out)
		if !retryable(err) {
			return err
		}
		g.logger.Warn("gateway read failed", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func (g *HTTPGateway) write(ctx context.Context, method, path string, body, out any) error {
	return g.do(ctx, method, path, body, out)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := newAgent(method, g.baseURL+path)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if g.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+g.token)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(timeout)

	status, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("gateway %s %s: %w", method, path, errors.Join(errs...))
	}

	switch {
	case status == fiber.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case status < 200 || status >= 300:
		return &StatusError{Method: method, Path: path, Status: status, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("gateway %s %s: decode: %w", method, path, err)
	}
	return nil
}

func newAgent(method, uri string) *fiber.Agent {
	switch method {
	case fiber.MethodPost:
		return fiber.Post(uri)
	case fiber.MethodPut:
		return fiber.Put(uri)
	case fiber.MethodPatch:
		return fiber.Patch(uri)
	case fiber.MethodDelete:
		return fiber.Delete(uri)
	default:
		return fiber.Get(uri)
	}
}

func retryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500
	}
	return true
}

func join(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(part))
	}
	return b.String()
}
