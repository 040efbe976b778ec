package wns

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"push-dispatcher/internal/provider"
)

const (
	defaultSendTimeout = 30 * time.Second
	maxErrorBodyBytes  = 2048
)

// Config carries the WNS application credentials. TokenURL is derived from
// the tenant when left empty; tests point it at a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	TokenURL     string
}

// Provider delivers toast notifications through the Windows push service.
// The device token is the channel URI issued to the app by WNS.
type Provider struct {
	logger       *zap.Logger
	client       *http.Client
	clientID     string
	clientSecret string
	tokenURL     string
	tokens       *tokenCache
}

func NewProvider(logger *zap.Logger, cfg Config, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	}
	p := &Provider{
		logger:       logger,
		client:       client,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     tokenURL,
	}
	p.tokens = newTokenCache(p.fetchToken)
	return p
}

func (p *Provider) Name() string {
	return "windows"
}

func (p *Provider) Send(ctx context.Context, msg provider.Message) error {
	token, err := p.tokens.get(ctx)
	if err != nil {
		return err
	}

	payload, err := toastPayload(msg)
	if err != nil {
		return &provider.SendError{
			Message:  fmt.Sprintf("failed to build toast payload: %v", err),
			Category: provider.CategoryInvalidPayload,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Token, bytes.NewReader(payload))
	if err != nil {
		return &provider.SendError{
			Message:  fmt.Sprintf("invalid channel URI: %v", err),
			Category: provider.CategoryInvalidToken,
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-WNS-Type", "wns/toast")
	req.Header.Set("X-WNS-RequestForStatus", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return &provider.SendError{
			Message:  fmt.Sprintf("wns request failed: %v", err),
			Category: provider.CategoryNetworkError,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		p.logger.Debug("wns: toast delivered",
			zap.String("channel", msg.Token),
			zap.String("wns_status", resp.Header.Get("X-WNS-Status")))
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The cached token may have been revoked; force a refresh next call.
		p.tokens.invalidate()
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &provider.SendError{
		Message:    fmt.Sprintf("wns rejected toast: %s", strings.TrimSpace(string(body))),
		StatusCode: resp.StatusCode,
		Category:   provider.ClassifyStatus(resp.StatusCode),
	}
}

// fetchToken performs the OAuth2 client-credentials exchange.
func (p *Provider) fetchToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"scope":         {"https://wns.windows.com/.default"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, &provider.SendError{
			Message:  fmt.Sprintf("failed to build token request: %v", err),
			Category: provider.CategoryUnauthorized,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", time.Time{}, &provider.SendError{
			Message:  fmt.Sprintf("token request failed: %v", err),
			Category: provider.CategoryNetworkError,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		category := provider.CategoryUnauthorized
		if resp.StatusCode >= 500 {
			category = provider.CategoryServiceUnavailable
		}
		return "", time.Time{}, &provider.SendError{
			Message:    fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			StatusCode: resp.StatusCode,
			Category:   category,
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, &provider.SendError{
			Message:  fmt.Sprintf("failed to decode token response: %v", err),
			Category: provider.CategoryUnauthorized,
		}
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, &provider.SendError{
			Message:  "token endpoint returned an empty access token",
			Category: provider.CategoryUnauthorized,
		}
	}

	expiry := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	p.logger.Debug("wns: access token refreshed", zap.Time("expiry", expiry))
	return payload.AccessToken, expiry, nil
}

// toastPayload renders the ToastGeneric XML body. All text runs through the
// XML escaper so notification content cannot inject markup.
func toastPayload(msg provider.Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<toast`)
	if len(msg.Data) > 0 {
		launch, err := json.Marshal(msg.Data)
		if err != nil {
			return nil, err
		}
		buf.WriteString(` launch="`)
		if err := xml.EscapeText(&buf, launch); err != nil {
			return nil, err
		}
		buf.WriteString(`"`)
	}
	buf.WriteString(`><visual><binding template="ToastGeneric"><text>`)
	if err := xml.EscapeText(&buf, []byte(msg.Title)); err != nil {
		return nil, err
	}
	buf.WriteString(`</text><text>`)
	if err := xml.EscapeText(&buf, []byte(msg.Body)); err != nil {
		return nil, err
	}
	buf.WriteString(`</text></binding></visual></toast>`)
	return buf.Bytes(), nil
}
