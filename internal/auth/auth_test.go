package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newApp(keyHash string) *fiber.App {
	svc := NewService(zap.NewNop(), keyHash)
	app := fiber.New()
	app.Get("/protected", svc.RequireAPIKey(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireAPIKey(t *testing.T) {
	hash, err := HashAPIKey("secret")
	if err != nil {
		t.Fatal(err)
	}
	app := newApp(hash)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 with valid key, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 with invalid key, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/protected", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("Expected status 401 without key, got %d", resp.StatusCode)
	}
}

func TestEmptyHashDisablesAuth(t *testing.T) {
	app := newApp("")

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 with auth disabled, got %d", resp.StatusCode)
	}
}
