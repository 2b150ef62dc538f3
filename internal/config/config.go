package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken string `env:"BOT_TOKEN,required"`
	DBFile   string `env:"DB_FILE" envDefault:"db.json"`

	// Planka
	PlankaBaseURL       string `env:"PLANKA_BASE_URL,required"`
	PlankaBoardID       string `env:"PLANKA_BOARD_ID,required"`
	PlankaAdminUsername string `env:"PLANKA_ADMIN_USERNAME,required"`
	PlankaAdminPassword string `env:"PLANKA_ADMIN_PASSWORD,required"`
	// PlankaPublicURL is the base for card links shown to users.
	PlankaPublicURL string `env:"PLANKA_PUBLIC_URL" envDefault:"https://swifty.uz"`

	// Analysis (OpenAI-compatible endpoint)
	AnalysisAPIKey  string `env:"ANALYSIS_API_KEY,required"`
	AnalysisBaseURL string `env:"ANALYSIS_BASE_URL"`
	AnalysisModel   string `env:"ANALYSIS_MODEL" envDefault:"gpt-4o-mini"`
	WhisperModel    string `env:"WHISPER_MODEL" envDefault:"whisper-1"`

	// Owner
	OwnerUsername string `env:"OWNER_USERNAME,required"`

	// Scheduler
	DigestHourUTC int `env:"DIGEST_HOUR_UTC" envDefault:"4"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// IsOwner reports whether a transport username belongs to the configured owner.
func (c *Config) IsOwner(username string) bool {
	return username != "" && username == c.OwnerUsername
}

// CardURL builds the public link for a board card.
func (c *Config) CardURL(cardID string) string {
	return fmt.Sprintf("%s/cards/%s", c.PlankaPublicURL, cardID)
}
