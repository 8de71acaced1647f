package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Library.Path != "./library" || cfg.SQLite.Path != "./gloss.db" {
		t.Errorf("paths = %q %q", cfg.Library.Path, cfg.SQLite.Path)
	}
}

func TestRenderConfig_PageSize(t *testing.T) {
	cfg := RenderConfig{RasterScale: 2}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty page size should default: %v", err)
	}
	if cfg.PageSize != PageSizeA4 {
		t.Errorf("page size = %q", cfg.PageSize)
	}
	cfg.PageSize = "A5"
	if err := cfg.Validate(); err == nil {
		t.Error("A5 should be rejected")
	}
}

func TestRenderConfig_Scale(t *testing.T) {
	for _, scale := range []float64{0, 0.1, 9} {
		cfg := RenderConfig{RasterScale: scale, PageSize: PageSizeA4}
		if err := cfg.Validate(); err == nil {
			t.Errorf("scale %v should be rejected", scale)
		}
	}
}

func TestFetchConfig_Validate(t *testing.T) {
	cfg := FetchConfig{Timeout: 10 * time.Second, MaxBytes: 1 << 20}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid fetch config: %v", err)
	}
	cfg.Timeout = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("sub-second timeout should be rejected")
	}
}

func TestFullConfig_RenderValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Render.PageSize = "Letter"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch render error")
	}
}
