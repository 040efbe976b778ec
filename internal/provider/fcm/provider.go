package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"push-dispatcher/internal/provider"
)

const (
	defaultSendTimeout = 30 * time.Second
	maxErrorBodyBytes  = 2048
)

// Config carries the Firebase project credentials. Endpoint is derived from
// the project id when left empty; tests point it at a local server.
type Config struct {
	ProjectID string
	ServerKey string
	Endpoint  string
}

// Provider delivers notifications through a Firebase-style push backend using
// a bearer token and a JSON payload.
type Provider struct {
	logger    *zap.Logger
	client    *http.Client
	endpoint  string
	serverKey string
}

func NewProvider(logger *zap.Logger, cfg Config, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", cfg.ProjectID)
	}
	return &Provider{
		logger:    logger,
		client:    client,
		endpoint:  endpoint,
		serverKey: cfg.ServerKey,
	}
}

func (p *Provider) Name() string {
	return "android"
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type sendRequest struct {
	Message message `json:"message"`
}

func (p *Provider) Send(ctx context.Context, msg provider.Message) error {
	// json.Marshal escapes all string content, so notification text cannot
	// break out of the payload.
	payload, err := json.Marshal(sendRequest{
		Message: message{
			Token:        msg.Token,
			Notification: notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		},
	})
	if err != nil {
		return &provider.SendError{
			Message:  fmt.Sprintf("failed to encode fcm payload: %v", err),
			Category: provider.CategoryInvalidPayload,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &provider.SendError{
			Message:  fmt.Sprintf("failed to build fcm request: %v", err),
			Category: provider.CategoryUnknown,
		}
	}
	req.Header.Set("Authorization", "Bearer "+p.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return &provider.SendError{
			Message:  fmt.Sprintf("fcm request failed: %v", err),
			Category: provider.CategoryNetworkError,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		p.logger.Debug("fcm: notification delivered", zap.String("token", msg.Token))
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &provider.SendError{
		Message:    fmt.Sprintf("fcm rejected notification: %s", strings.TrimSpace(string(body))),
		StatusCode: resp.StatusCode,
		Category:   provider.ClassifyStatus(resp.StatusCode),
	}
}
