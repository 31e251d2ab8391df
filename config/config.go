package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		ExternalAPI struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"externalAPI"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Planner       PlannerConfig       `mapstructure:"planner"`
	Weather       WeatherConfig       `mapstructure:"weather"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type RetrievalConfig struct {
	// Backend is "memory" (flat index loaded at start-up) or "pgvector".
	Backend string        `mapstructure:"backend"`
	TopK    int           `mapstructure:"topK"`
	Encoder EncoderConfig `mapstructure:"encoder"`
}

type EncoderConfig struct {
	// Provider is "gemini" or "openai".
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"apiKey"`
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

type PlannerConfig struct {
	BeamWidth     int           `mapstructure:"beamWidth"`
	SolverTimeout time.Duration `mapstructure:"solverTimeout"`
}

type WeatherConfig struct {
	BaseURL     string        `mapstructure:"baseURL"`
	APIKey      string        `mapstructure:"apiKey"`
	HorizonDays int           `mapstructure:"horizonDays"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cacheTTL"`
	// RequestsPerSecond caps outbound forecast calls.
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Breaker           struct {
		MaxRequests         uint32        `mapstructure:"maxRequests"`
		Interval            time.Duration `mapstructure:"interval"`
		Timeout             time.Duration `mapstructure:"timeout"`
		ConsecutiveFailures uint32        `mapstructure:"consecutiveFailures"`
	} `mapstructure:"breaker"`
}

type ObservabilityConfig struct {
	ServiceName string `mapstructure:"serviceName"`
	MetricsPort string `mapstructure:"metricsPort"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// bindSecrets maps the well-known env names onto config keys. Errors are only
// returned for an empty key, so they are ignored.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("weather.apiKey", "OPENWEATHER_API_KEY")
	switch v.GetString("retrieval.encoder.provider") {
	case "openai":
		_ = v.BindEnv("retrieval.encoder.apiKey", "OPENAI_API_KEY")
	default:
		_ = v.BindEnv("retrieval.encoder.apiKey", "GOOGLE_GEMINI_API_KEY")
	}
}
