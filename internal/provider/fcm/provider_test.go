package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"push-dispatcher/internal/provider"
)

func TestSendPayloadShape(t *testing.T) {
	var captured sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer server-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	p := NewProvider(zap.NewNop(), Config{ServerKey: "server-key", Endpoint: server.URL}, server.Client())

	err := p.Send(context.Background(), provider.Message{
		Token: "device-token",
		Title: "Order shipped",
		Body:  "On its way",
		Data:  map[string]string{"orderId": "42"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if captured.Message.Token != "device-token" {
		t.Errorf("Token = %q, want device-token", captured.Message.Token)
	}
	if captured.Message.Notification.Title != "Order shipped" {
		t.Errorf("Title = %q", captured.Message.Notification.Title)
	}
	if captured.Message.Data["orderId"] != "42" {
		t.Errorf("Data = %v", captured.Message.Data)
	}
}

func TestSendStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   provider.FailureCategory
	}{
		{http.StatusBadRequest, provider.CategoryInvalidPayload},
		{http.StatusUnauthorized, provider.CategoryUnauthorized},
		{http.StatusNotFound, provider.CategoryInvalidToken},
		{http.StatusTooManyRequests, provider.CategoryRateLimited},
		{http.StatusInternalServerError, provider.CategoryServiceUnavailable},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		p := NewProvider(zap.NewNop(), Config{ServerKey: "k", Endpoint: server.URL}, server.Client())
		err := p.Send(context.Background(), provider.Message{Token: "t", Title: "x"})
		server.Close()

		var se *provider.SendError
		if !errors.As(err, &se) {
			t.Fatalf("Expected SendError for status %d, got %v", tc.status, err)
		}
		if se.Category != tc.want {
			t.Errorf("Status %d classified as %s, want %s", tc.status, se.Category, tc.want)
		}
	}
}

func TestSendNetworkErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	p := NewProvider(zap.NewNop(), Config{ServerKey: "k", Endpoint: server.URL}, nil)
	err := p.Send(context.Background(), provider.Message{Token: "t", Title: "x"})

	var se *provider.SendError
	if !errors.As(err, &se) {
		t.Fatalf("Expected SendError, got %v", err)
	}
	if se.Category != provider.CategoryNetworkError {
		t.Errorf("Category = %s, want NetworkError", se.Category)
	}
	if !se.Retryable() {
		t.Error("Expected network error to be retryable")
	}
}

func TestDefaultEndpointFromProject(t *testing.T) {
	p := NewProvider(zap.NewNop(), Config{ProjectID: "demo", ServerKey: "k"}, nil)
	want := "https://fcm.googleapis.com/v1/projects/demo/messages:send"
	if p.endpoint != want {
		t.Errorf("endpoint = %q, want %q", p.endpoint, want)
	}
}
