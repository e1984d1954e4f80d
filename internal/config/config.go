package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Local & deployment secrets (fill up for local development)
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	Environment        string `envconfig:"ENV" default:"development"`
	Port               string `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	Version            string `envconfig:"GIT_COMMIT_SHA" default:"development"`
	APIBaseURL         string `envconfig:"API_BASE_URL" default:"http://localhost:8080"`

	// Content engine settings
	BulkMaxItems int `envconfig:"BULK_MAX_ITEMS" default:"5"`

	// Content events (outbox queue and relay)
	ContentEventsQueue  string `envconfig:"CONTENT_EVENTS_QUEUE" default:"content_events"`
	ContentEventsDLQ    string `envconfig:"CONTENT_EVENTS_DLQ" default:"content_events_dlq"`
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	PubSubContentTopic  string `envconfig:"PUBSUB_CONTENT_TOPIC" default:"content-events"`
	PubSubEmulatorHost  string `envconfig:"PUBSUB_EMULATOR_HOST"`
	RelayPollTimeoutSec int    `envconfig:"RELAY_POLL_TIMEOUT_SEC" default:"30"`
	RelayPollMaxMsg     int    `envconfig:"RELAY_POLL_MAX_MSG" default:"10"`
	RelayVisibilitySec  int    `envconfig:"RELAY_VISIBILITY_SEC" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
