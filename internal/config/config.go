package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProfileStorePostgres = "postgres"
	ProfileStoreFile     = "file"
)

type Config struct {
	Port               string
	DBUrl              string
	ProgramServiceURL  string
	AppEnv             string
	EnableDocs         bool
	ProfileStore       string
	DataDir            string
	CORSAllowedOrigins string
	Auth               AuthConfig
	Telemetry          TelemetryConfig
}

type AuthConfig struct {
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	CookieName              string
	// DevBypass accepts "dev:<uid>" tokens. Only honored in development.
	DevBypass bool
}

type TelemetryConfig struct {
	ServiceName          string
	ServiceVersion       string
	OTLPEndpoint         string
	OTLPTracesEndpoint   string
	OTLPMetricsEndpoint  string
	OTLPProtocol         string
	OTLPHeaders          map[string]string
	OTLPInsecure         bool
	ExportTimeout        time.Duration
	MetricExportInterval time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	appEnv := normalizeEnv(getEnv("APP_ENV", "production"))
	dbURL := getEnv("DB_URL", "")

	profileStore := strings.ToLower(strings.TrimSpace(getEnv("PROFILE_STORE", "")))
	if profileStore == "" {
		profileStore = ProfileStoreFile
		if dbURL != "" {
			profileStore = ProfileStorePostgres
		}
	}
	switch profileStore {
	case ProfileStorePostgres:
		if dbURL == "" {
			return nil, fmt.Errorf("DB_URL is required when PROFILE_STORE=postgres")
		}
	case ProfileStoreFile:
	default:
		return nil, fmt.Errorf("invalid PROFILE_STORE %q", profileStore)
	}

	programServiceURL := strings.TrimRight(getEnv("PROGRAM_SERVICE_API_URL", ""), "/")
	if programServiceURL == "" {
		log.Println("PROGRAM_SERVICE_API_URL is not set; proxy routes will fail")
	}

	auth := AuthConfig{
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		CookieName:              getEnv("AUTH_COOKIE_NAME", "firebase-token"),
		DevBypass:               getEnvBool("AUTH_DEV_BYPASS", false) && appEnv == "development",
	}
	if auth.FirebaseProjectID == "" && !auth.DevBypass {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	exportTimeout, err := time.ParseDuration(getEnv("OTEL_EXPORTER_OTLP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_TIMEOUT: %w", err)
	}
	metricInterval, err := time.ParseDuration(getEnv("OTEL_METRIC_EXPORT_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_METRIC_EXPORT_INTERVAL: %w", err)
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBUrl:              dbURL,
		ProgramServiceURL:  programServiceURL,
		AppEnv:             appEnv,
		EnableDocs:         getEnvBool("ENABLE_API_DOCS", false),
		ProfileStore:       profileStore,
		DataDir:            getEnv("DATA_DIR", "data/profiles"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		Auth:               auth,
		Telemetry: TelemetryConfig{
			ServiceName:          getEnv("OTEL_SERVICE_NAME", "onboardchat"),
			ServiceVersion:       getEnv("OTEL_SERVICE_VERSION", "dev"),
			OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPTracesEndpoint:   getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
			OTLPMetricsEndpoint:  getEnv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ""),
			OTLPProtocol:         getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf"),
			OTLPHeaders:          parseHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", "")),
			OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			ExportTimeout:        exportTimeout,
			MetricExportInterval: metricInterval,
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

// parseHeaders reads "key=value,key2=value2".
func parseHeaders(value string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(val)
	}
	return headers
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) TelemetryEnabled() bool {
	return c != nil && (c.Telemetry.OTLPEndpoint != "" || c.Telemetry.OTLPTracesEndpoint != "" || c.Telemetry.OTLPMetricsEndpoint != "")
}
