package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

// PersonaRules constrains the shape of a persona's replies regardless of
// which model produced them.
type PersonaRules struct {
	SystemPrompt     string   `mapstructure:"system_prompt"`
	MaxWords         int      `mapstructure:"max_words"`
	ForbiddenPhrases []string `mapstructure:"forbidden_phrases"`
}

// Config holds the application's configuration. It is constructed once in
// main and passed into constructors; nothing reads it through a package
// global.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		// DSN "memory" selects an in-memory SQLite database; an empty DSN
		// leaves storage unconfigured and the quota service fails open.
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Auth struct {
		JWTSecret    string `mapstructure:"jwt_secret"`
		TokenTTLDays int    `mapstructure:"token_ttl_days"`
	} `mapstructure:"auth"`
	LLM struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"llm"`
	Gumroad struct {
		AccessToken      string `mapstructure:"access_token"`
		BaseURL          string `mapstructure:"base_url"`
		ProductPermalink string `mapstructure:"product_permalink"`
		PriceCents       int    `mapstructure:"price_cents"`
	} `mapstructure:"gumroad"`
	Persona PersonaRules `mapstructure:"persona"`
	Quota   struct {
		DailyFreeLimit  int `mapstructure:"daily_free_limit"`
		GlobalSafetyCap int `mapstructure:"global_safety_cap"`
	} `mapstructure:"quota"`
}

// Load reads config.yaml (if present) and applies environment overrides for
// secrets. Missing configuration never aborts startup; dependent features
// degrade instead.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath("../config") // for running from package test directories

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.dsn", "memory")
	v.SetDefault("auth.token_ttl_days", 7)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("gumroad.base_url", "https://api.gumroad.com")
	v.SetDefault("gumroad.product_permalink", "persona-ai")
	v.SetDefault("gumroad.price_cents", 699)
	v.SetDefault("persona.system_prompt", "You are a helpful assistant.")
	v.SetDefault("persona.max_words", 150)
	v.SetDefault("quota.daily_free_limit", 10)
	v.SetDefault("quota.global_safety_cap", 1000)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("WARN: [Config] config.yaml not found. Using environment variables and defaults.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Secrets and deploy-specific values come from the environment.
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
		log.Printf("INFO: [Config] Server port overridden by SERVER_PORT: %s", port)
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if token := os.Getenv("GUMROAD_ACCESS_TOKEN"); token != "" {
		cfg.Gumroad.AccessToken = token
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-key"
		log.Println("WARN: [Config] SECRET_KEY not set. Using development JWT secret.")
	}
	if cfg.LLM.APIKey == "" {
		log.Println("WARN: [Config] GROQ_API_KEY not set. Chat replies will return a configuration error.")
	}
	if cfg.Gumroad.AccessToken == "" {
		log.Println("WARN: [Config] GUMROAD_ACCESS_TOKEN not set. Sale verification will fail closed.")
	}

	log.Println("INFO: [Config] Configuration loading complete.")
	return &cfg, nil
}
