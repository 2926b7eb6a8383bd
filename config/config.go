package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Secrets have no in-code defaults and must come from config.json or
// the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string

	// Gin framework configuration
	GinMode string
	GinPath string

	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for caching, revocation and OAuth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTLSec   int

	// OAuth sign-in
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectBase  string

	// Uploads
	UploadDir             string
	UploadBaseURL         string
	UploadMaxSizeMB       int
	UploadTTLHours        int
	UploadReaperIntervalM int

	// Author directory lookups
	DirectoryTimeoutMS   int
	DirectorySummaryTTLS int

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot.
// Precedence: config/config.json, then defaults, then env overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config or environment")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads the grouped JSON config file if present.
// A missing file is not an error; malformed JSON is.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"]; ok {
		setString(app, "AppPort", &out.AppPort)
		setString(app, "JWTSecret", &out.JWTSecret)
		setInt(app, "TokenTTLHours", &out.TokenTTLHours)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
		setStrings(app, "AllowedOrigins", &out.AllowedOrigins)
		setStrings(app, "AdminUsernames", &out.AdminUsernames)
	}
	if g, ok := raw["gin"]; ok {
		setString(g, "Mode", &out.GinMode)
		setString(g, "LogPath", &out.GinPath)
	}
	if dbs, ok := raw["database"]; ok {
		setString(dbs, "DatabaseURI", &out.DatabaseURI)
		setString(dbs, "DBHost", &out.DBHost)
		setString(dbs, "DBPort", &out.DBPort)
		setString(dbs, "DBUser", &out.DBUser)
		setString(dbs, "DBPassword", &out.DBPassword)
		setString(dbs, "DBName", &out.DBName)
	}
	if rds, ok := raw["redis"]; ok {
		setString(rds, "RedisHost", &out.RedisHost)
		setInt(rds, "RedisPort", &out.RedisPort)
		setInt(rds, "RedisDB", &out.RedisDB)
		setString(rds, "RedisPassword", &out.RedisPassword)
		setInt(rds, "CacheTTLSec", &out.CacheTTLSec)
	}
	if oa, ok := raw["oauth"]; ok {
		setString(oa, "GitHubClientID", &out.GitHubClientID)
		setString(oa, "GitHubClientSecret", &out.GitHubClientSecret)
		setString(oa, "RedirectBase", &out.OAuthRedirectBase)
	}
	if up, ok := raw["uploads"]; ok {
		setString(up, "Dir", &out.UploadDir)
		setString(up, "BaseURL", &out.UploadBaseURL)
		setInt(up, "MaxSizeMB", &out.UploadMaxSizeMB)
		setInt(up, "TTLHours", &out.UploadTTLHours)
		setInt(up, "ReaperIntervalMinutes", &out.UploadReaperIntervalM)
	}
	if dir, ok := raw["directory"]; ok {
		setInt(dir, "TimeoutMS", &out.DirectoryTimeoutMS)
		setInt(dir, "SummaryTTLSec", &out.DirectorySummaryTTLS)
	}
	if lg, ok := raw["log"]; ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		setBool(lg, "Compress", &out.LogCompress)
	}
	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if s, ok := m[key].(string); ok && s != "" {
		*dst = s
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch t := m[key].(type) {
	case float64:
		*dst = int(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			*dst = int(i)
		}
	}
}

func setBool(m map[string]any, key string, dst *bool) {
	if b, ok := m[key].(bool); ok {
		*dst = b
	}
}

func setStrings(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	if len(res) > 0 {
		*dst = res
	}
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "nestboard"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSec == 0 {
		c.CacheTTLSec = 60
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.UploadDir == "" {
		c.UploadDir = "static/uploads"
	}
	if c.UploadBaseURL == "" {
		c.UploadBaseURL = "/static/uploads"
	}
	if c.UploadMaxSizeMB == 0 {
		c.UploadMaxSizeMB = 50
	}
	if c.UploadTTLHours == 0 {
		c.UploadTTLHours = 24
	}
	if c.UploadReaperIntervalM == 0 {
		c.UploadReaperIntervalM = 5
	}
	if c.DirectoryTimeoutMS == 0 {
		c.DirectoryTimeoutMS = 300
	}
	if c.DirectorySummaryTTLS == 0 {
		c.DirectorySummaryTTLS = 120
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func applyEnvOverrides(c *AppConfig) {
	setEnvString("APP_PORT", &c.AppPort)
	setEnvString("JWT_SECRET", &c.JWTSecret)
	setEnvInt("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	setEnvInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	setEnvList("CORS_ALLOWED_ORIGINS", &c.AllowedOrigins)
	setEnvList("ADMIN_USERNAMES", &c.AdminUsernames)
	setEnvString("GIN_MODE", &c.GinMode)
	setEnvString("GIN_LOG_PATH", &c.GinPath)
	setEnvString("DATABASE_URI", &c.DatabaseURI)
	setEnvString("DB_HOST", &c.DBHost)
	setEnvString("DB_PORT", &c.DBPort)
	setEnvString("DB_USER", &c.DBUser)
	setEnvString("DB_PASSWORD", &c.DBPassword)
	setEnvString("DB_NAME", &c.DBName)
	setEnvString("REDIS_HOST", &c.RedisHost)
	setEnvInt("REDIS_PORT", &c.RedisPort)
	setEnvInt("REDIS_DB", &c.RedisDB)
	setEnvString("REDIS_PASSWORD", &c.RedisPassword)
	setEnvInt("CACHE_TTL_SEC", &c.CacheTTLSec)
	setEnvString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	setEnvString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	setEnvString("OAUTH_REDIRECT_BASE_URL", &c.OAuthRedirectBase)
	setEnvString("UPLOAD_DIR", &c.UploadDir)
	setEnvString("UPLOAD_BASE_URL", &c.UploadBaseURL)
	setEnvInt("UPLOAD_MAX_SIZE_MB", &c.UploadMaxSizeMB)
	setEnvInt("UPLOAD_TTL_HOURS", &c.UploadTTLHours)
	setEnvInt("UPLOAD_REAPER_INTERVAL_MINUTES", &c.UploadReaperIntervalM)
	setEnvInt("DIRECTORY_TIMEOUT_MS", &c.DirectoryTimeoutMS)
	setEnvInt("DIRECTORY_SUMMARY_TTL_SEC", &c.DirectorySummaryTTLS)
	setEnvString("LOG_LEVEL", &c.LogLevel)
	setEnvString("LOG_PATH", &c.LogPath)
	setEnvInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setEnvInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setEnvInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func setEnvString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid integer for %s: %v", key, err)
	}
	*dst = i
}

func setEnvList(key string, dst *[]string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
