package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	DatabasePath string `envconfig:"DATABASE_PATH" default:"/app/data/launchpad-ai.db"`
	AdminSecret  string `envconfig:"ADMIN_SECRET" default:""`
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogPath      string `envconfig:"LOG_PATH" default:""`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// Backends
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY" default:""`
	AnthropicURL    string `envconfig:"ANTHROPIC_URL" default:""`
	TextModel       string `envconfig:"TEXT_MODEL" default:""`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiURL       string `envconfig:"GEMINI_URL" default:""`
	VisionModel     string `envconfig:"VISION_MODEL" default:""`

	// Limits
	DefaultPlan        string        `envconfig:"DEFAULT_PLAN" default:"free"`
	MaxConcurrentCalls int64         `envconfig:"MAX_CONCURRENT_CALLS" default:"16"`
	RequestsPerMinute  int           `envconfig:"REQUESTS_PER_MINUTE" default:"30"`
	CallTimeout        time.Duration `envconfig:"CALL_TIMEOUT" default:"3m"`
}

var Cfg Settings

// Load reads an optional .env file and then the LAUNCHPAD_AI_* environment.
// Variables already present in the environment win over the file.
func Load() {
	envFile := os.Getenv("LAUNCHPAD_AI_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("WARNING: cannot load %s: %v", envFile, err)
		}
	}

	if err := envconfig.Process("LAUNCHPAD_AI", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
