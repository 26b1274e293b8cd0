package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Recognition backends.
const (
	BackendRekognition = "rekognition"
	BackendInsightFace = "insightface"
)

type Config struct {
	App         AppConfig
	Web         WebConfig
	Database    DatabaseConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Recognition RecognitionConfig
	Queue       QueueConfig
	Frontend    FrontendConfig
	Tunables    Tunables
}

type AppConfig struct {
	Env      string // development or production
	LogLevel string // zerolog level name, empty means derive from Env
}

// IsProduction reports whether the process runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

type WebConfig struct {
	Host              string
	Port              int
	AllowedOrigin     string // value of Access-Control-Allow-Origin on every response
	PublicAPIEndpoint string // base URL used by the CLI client commands
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type AWSConfig struct {
	Region          string
	Endpoint        string // optional override, e.g. localstack or MinIO
	AccessKeyID     string
	SecretAccessKey string
	UserAgent       string // appended to the SDK user agent
}

type StorageConfig struct {
	Bucket       string
	ResizedPath  string // key prefix for face crops
	UsePathStyle bool
}

type RecognitionConfig struct {
	Backend      string // rekognition or insightface
	CollectionID string
	EmbeddingURL string // InsightFace embedding server
}

type QueueConfig struct {
	URL string // blob-created notifications
}

type FrontendConfig struct {
	Bucket           string
	APIID            string
	IdentityPoolID   string
	DeploymentBucket string // optional zip bundle location
	DeploymentKey    string
}

// Tunables are read from the embedded defaults.yaml.
type Tunables struct {
	URLs   URLTunables    `yaml:"urls"`
	Search SearchTunables `yaml:"search"`
	Faces  FaceTunables   `yaml:"faces"`
}

type URLTunables struct {
	UploadExpiry   time.Duration `yaml:"upload_expiry"`
	DownloadExpiry time.Duration `yaml:"download_expiry"`
}

type SearchTunables struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxUploadURLs   int `yaml:"max_upload_urls"`
}

type FaceTunables struct {
	CropPrefix     string  `yaml:"crop_prefix"`
	MatchThreshold float32 `yaml:"match_threshold"` // minimum similarity in percent
	MaxMatches     int     `yaml:"max_matches"`
	MaxDistance    float64 `yaml:"max_distance"` // cosine distance for the embedding backend
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the env var value or the default when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envBool parses common truthy values; anything else yields the default.
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

// LoadTunables parses the embedded defaults.
func LoadTunables() Tunables {
	var t Tunables
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return t
}

func Load() *Config {
	tunables := LoadTunables()

	resized := envString("S3_RESIZED_PATH", tunables.Faces.CropPrefix)
	tunables.Faces.CropPrefix = resized

	return &Config{
		App: AppConfig{
			Env:      envString("APP_ENV", "development"),
			LogLevel: os.Getenv("LOG_LEVEL"),
		},
		Web: WebConfig{
			Host:              envString("WEB_HOST", "0.0.0.0"),
			Port:              envInt("WEB_PORT", 8080),
			AllowedOrigin:     envString("CORS_ALLOWED_ORIGIN", "*"),
			PublicAPIEndpoint: envString("API_ENDPOINT", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		AWS: AWSConfig{
			Region:          envString("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("AWS_ENDPOINT_URL"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UserAgent:       os.Getenv("CUSTOM_USER_AGENT"),
		},
		Storage: StorageConfig{
			Bucket:       os.Getenv("S3_BUCKET_NAME"),
			ResizedPath:  resized,
			UsePathStyle: envBool("S3_USE_PATH_STYLE", false),
		},
		Recognition: RecognitionConfig{
			Backend:      envString("RECOGNITION_BACKEND", BackendRekognition),
			CollectionID: envString("REKOGNITION_COLLECTION_ID", "photosearch"),
			EmbeddingURL: os.Getenv("EMBEDDING_URL"),
		},
		Queue: QueueConfig{
			URL: os.Getenv("SQS_QUEUE_URL"),
		},
		Frontend: FrontendConfig{
			Bucket:           os.Getenv("FRONTEND_BUCKET_NAME"),
			APIID:            os.Getenv("APP_API_ID"),
			IdentityPoolID:   os.Getenv("IDENTITY_POOL_ID"),
			DeploymentBucket: os.Getenv("DEPLOYMENT_BUCKET"),
			DeploymentKey:    os.Getenv("DEPLOYMENT_KEY"),
		},
		Tunables: tunables,
	}
}
