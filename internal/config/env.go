package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jarvis-assistant/jarvis/internal/auth"
)

// secrets is the environment-only part of the configuration. Everything here
// is a credential and must never appear in the JSON config file.
type secrets struct {
	OpenRouterAPIKey   string `envconfig:"OPENROUTER_API_KEY"`
	TwilioAuthToken    string `envconfig:"TWILIO_AUTH_TOKEN"`
	GoogleAccessToken  string `envconfig:"GOOGLE_ACCESS_TOKEN"`
	SupabaseURL        string `envconfig:"SUPABASE_URL"`
	SupabaseKey        string `envconfig:"SUPABASE_KEY"`
	TokenEncryptionKey string `envconfig:"TOKEN_ENCRYPTION_KEY"`

	// Non-secret overrides useful in containers where editing the config
	// file is awkward.
	Port  int    `envconfig:"PORT"`
	Model string `envconfig:"JARVIS_MODEL"`
}

// overlayEnv loads .env (if present) and merges environment values into cfg.
func overlayEnv(cfg *Config) error {
	_ = godotenv.Load()

	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	cfg.Security.TokenEncryptionKey = s.TokenEncryptionKey

	// Credentials may be stored sealed (enc: prefix) and are unsealed with
	// TOKEN_ENCRYPTION_KEY; plain values pass through.
	for _, cred := range []struct {
		name  string
		value string
		dst   *string
	}{
		{"OPENROUTER_API_KEY", s.OpenRouterAPIKey, &cfg.LLM.APIKey},
		{"TWILIO_AUTH_TOKEN", s.TwilioAuthToken, &cfg.Security.TwilioAuthToken},
		{"GOOGLE_ACCESS_TOKEN", s.GoogleAccessToken, &cfg.Providers.GoogleAccessToken},
		{"SUPABASE_KEY", s.SupabaseKey, &cfg.Providers.SupabaseKey},
	} {
		plain, err := auth.DecryptToken(s.TokenEncryptionKey, cred.value)
		if err != nil {
			return fmt.Errorf("%s: %w", cred.name, err)
		}
		*cred.dst = plain
	}
	if s.SupabaseURL != "" {
		cfg.Providers.SupabaseURL = s.SupabaseURL
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if s.Model != "" {
		cfg.LLM.Model = s.Model
	}

	return nil
}
