package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarvis-assistant/jarvis/internal/auth"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.LLM.Model != def.LLM.Model {
		t.Errorf("expected default model %q, got %q", def.LLM.Model, cfg.LLM.Model)
	}
	if cfg.Agent.MaxToolIter != 3 {
		t.Errorf("expected default max tool iterations 3, got %d", cfg.Agent.MaxToolIter)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"llm": map[string]any{
			"model":     "openai/gpt-4o",
			"maxTokens": 4096,
		},
		"conversation": map[string]any{
			"ttlMinutes": 45,
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "openai/gpt-4o" {
		t.Errorf("expected model %q, got %q", "openai/gpt-4o", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("expected maxTokens 4096, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Conversation.TTLMinutes != 45 {
		t.Errorf("expected ttlMinutes 45, got %d", cfg.Conversation.TTLMinutes)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("TWILIO_AUTH_TOKEN", "tw-secret")
	t.Setenv("JARVIS_MODEL", "meta-llama/llama-3.1-70b-instruct")

	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "sk-or-test" {
		t.Errorf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Security.TwilioAuthToken != "tw-secret" {
		t.Errorf("expected twilio token from env, got %q", cfg.Security.TwilioAuthToken)
	}
	if cfg.LLM.Model != "meta-llama/llama-3.1-70b-instruct" {
		t.Errorf("expected model override from env, got %q", cfg.LLM.Model)
	}
}

func TestLoad_SealedCredentials(t *testing.T) {
	sealed, err := auth.EncryptToken("unit-test-key", "ya29.google-token")
	if err != nil {
		t.Fatalf("seal token: %v", err)
	}

	t.Setenv("TOKEN_ENCRYPTION_KEY", "unit-test-key")
	t.Setenv("GOOGLE_ACCESS_TOKEN", sealed)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-plain")

	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.GoogleAccessToken != "ya29.google-token" {
		t.Errorf("expected unsealed google token, got %q", cfg.Providers.GoogleAccessToken)
	}
	if cfg.LLM.APIKey != "sk-or-plain" {
		t.Errorf("expected plain API key untouched, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_SealedCredentialWithoutKey(t *testing.T) {
	sealed, err := auth.EncryptToken("some-key", "ya29.google-token")
	if err != nil {
		t.Fatalf("seal token: %v", err)
	}

	t.Setenv("TOKEN_ENCRYPTION_KEY", "")
	t.Setenv("GOOGLE_ACCESS_TOKEN", sealed)

	if _, err := Load("/nonexistent/path/config.json"); err == nil {
		t.Fatal("expected error for sealed credential without encryption key")
	}
}

func TestSecrets_NeverSerialized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-or-secret"
	cfg.Security.TwilioAuthToken = "tw-secret"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, leak := range []string{"sk-or-secret", "tw-secret"} {
		if strings.Contains(string(data), leak) {
			t.Errorf("secret %q leaked into serialized config", leak)
		}
	}
}
