package provider

import (
	"context"
	"testing"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string                            { return s.name }
func (s *stubProvider) Send(_ context.Context, _ Message) error { return nil }

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	registry, err := NewRegistry(&stubProvider{name: "windows"}, &stubProvider{name: "android"})
	if err != nil {
		t.Fatal(err)
	}

	for _, platform := range []string{"windows", "Windows", "WINDOWS", "  windows  "} {
		if _, ok := registry.Lookup(platform); !ok {
			t.Errorf("Expected lookup to resolve %q", platform)
		}
	}

	if _, ok := registry.Lookup("ios"); ok {
		t.Error("Expected lookup miss for unregistered platform")
	}
	if _, ok := registry.Lookup(""); ok {
		t.Error("Expected lookup miss for empty platform")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&stubProvider{name: "windows"}, &stubProvider{name: "Windows"})
	if err == nil {
		t.Error("Expected error for duplicate provider names")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	if _, err := NewRegistry(&stubProvider{name: "  "}); err == nil {
		t.Error("Expected error for empty provider name")
	}
}

func TestRegistryPlatformsSorted(t *testing.T) {
	registry, err := NewRegistry(&stubProvider{name: "windows"}, &stubProvider{name: "android"}, &stubProvider{name: "fake"})
	if err != nil {
		t.Fatal(err)
	}

	platforms := registry.Platforms()
	want := []string{"android", "fake", "windows"}
	if len(platforms) != len(want) {
		t.Fatalf("Platforms() = %v, want %v", platforms, want)
	}
	for i := range want {
		if platforms[i] != want[i] {
			t.Errorf("Platforms()[%d] = %s, want %s", i, platforms[i], want[i])
		}
	}
}
