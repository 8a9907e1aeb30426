// Package config defines the configuration schema for jarvis.
//
// Structural settings live in a JSON file (~/.jarvis/config.json); secrets
// are supplied through the environment and overlaid after loading, so the
// config file never holds credentials.
package config

import "time"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int    `json:"port"`
	PublicURL      string `json:"publicUrl,omitempty"` // external base URL, used for webhook signature checks behind a proxy
	MetricsEnabled bool   `json:"metricsEnabled"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{Port: 8080, MetricsEnabled: true}
}

// LLMConfig holds completion-backend settings.
type LLMConfig struct {
	APIBase     string  `json:"apiBase"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TimeoutSec  int     `json:"timeoutSeconds"`

	// APIKey is populated from OPENROUTER_API_KEY, never from the file.
	APIKey string `json:"-"`
}

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIBase:     "https://openrouter.ai/api/v1",
		Model:       "anthropic/claude-sonnet-4.5",
		MaxTokens:   1024,
		Temperature: 0.7,
		TimeoutSec:  8,
	}
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxToolIter    int `json:"maxToolIterations"`
	MemoryWindow   int `json:"memoryWindow"`
	ToolTimeoutSec int `json:"toolTimeoutSeconds"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{MaxToolIter: 3, MemoryWindow: 50, ToolTimeoutSec: 10}
}

// ConversationConfig controls the in-memory context store.
type ConversationConfig struct {
	TTLMinutes       int `json:"ttlMinutes"`
	SweepIntervalMin int `json:"sweepIntervalMinutes"`
}

func defaultConversationConfig() ConversationConfig {
	return ConversationConfig{TTLMinutes: 30, SweepIntervalMin: 5}
}

// TTL returns the context time-to-live as a duration.
func (c ConversationConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// ProvidersConfig holds the endpoints of the backing data providers.
// Credentials come from the environment overlay.
type ProvidersConfig struct {
	GoogleAPIBase    string `json:"googleApiBase"`
	SupabaseURL      string `json:"supabaseUrl"`
	AuthStatusTTLSec int    `json:"authStatusTtlSeconds"`

	GoogleAccessToken string `json:"-"`
	SupabaseKey       string `json:"-"`
}

func defaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		GoogleAPIBase:    "https://www.googleapis.com",
		AuthStatusTTLSec: 30,
	}
}

// SecurityConfig bounds the public surface.
type SecurityConfig struct {
	MaxMessageChars  int `json:"maxMessageChars"`
	RateLimitPerMin  int `json:"rateLimitPerMinute"`
	LockoutThreshold int `json:"lockoutThreshold"`
	LockoutMinutes   int `json:"lockoutMinutes"`

	// TwilioAuthToken signs webhook requests; from TWILIO_AUTH_TOKEN.
	TwilioAuthToken string `json:"-"`
	// TokenEncryptionKey encrypts any persisted provider tokens; from TOKEN_ENCRYPTION_KEY.
	TokenEncryptionKey string `json:"-"`
}

func defaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxMessageChars:  2000,
		RateLimitPerMin:  30,
		LockoutThreshold: 5,
		LockoutMinutes:   15,
	}
}

// PersonaConfig points at the optional persona YAML file.
type PersonaConfig struct {
	File string `json:"file,omitempty"`
	Name string `json:"name"`
}

func defaultPersonaConfig() PersonaConfig {
	return PersonaConfig{Name: "JARVIS"}
}

// Config is the root configuration object.
type Config struct {
	Server       ServerConfig       `json:"server"`
	LLM          LLMConfig          `json:"llm"`
	Agent        AgentConfig        `json:"agent"`
	Conversation ConversationConfig `json:"conversation"`
	Providers    ProvidersConfig    `json:"providers"`
	Security     SecurityConfig     `json:"security"`
	Persona      PersonaConfig      `json:"persona"`
}

// DefaultConfig returns a Config with every section at its default.
func DefaultConfig() Config {
	return Config{
		Server:       defaultServerConfig(),
		LLM:          defaultLLMConfig(),
		Agent:        defaultAgentConfig(),
		Conversation: defaultConversationConfig(),
		Providers:    defaultProvidersConfig(),
		Security:     defaultSecurityConfig(),
		Persona:      defaultPersonaConfig(),
	}
}
