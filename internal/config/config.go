package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultFileOrigin = "https://files.encorekaraoke.com/uploads/"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 10s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Origins
	FileOrigin  string   // absolute base URL that uploaded files are served from
	CORSOrigins []string // site origins allowed to call the API with credentials

	// Auth
	SessionKey    string // cookie signing key (>= 32 bytes)
	CookieSecure  bool   // set the Secure flag on the session cookie
	AdminEmail    string
	AdminPassword string // plaintext, hashed at startup when AdminHash is empty
	AdminHash     string // bcrypt hash
	LoginBurst    int    // login attempts per client before throttling
	LoginRefill   int    // attempts refilled per minute

	// Settings document
	SettingsBackend string // "file" | "redis"
	SettingsFile    string // path of the JSON document when SettingsBackend=file
	SeedFile        string // optional yaml document loaded into an empty store

	// Uploads
	UploadBackend   string // "local" | "minio"
	UploadDir       string // root directory when UploadBackend=local
	MediaFolder     string // default folder for uploads without an explicit path
	MaxUploadSize   int64  // bytes
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool
	FFmpegBin       string
	RefreshInterval time.Duration // periodic catalog rebuild (0 = disabled)
	RequestTimeout  time.Duration // per-request timeout for plain API calls
	ActionTimeout   time.Duration // timeout for uploads and library actions

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ENCORE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ENCORE_SHUTDOWN_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("ENCORE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ENCORE_PRETTY_LOG", false),

		// Origins
		FileOrigin:  getenv("ENCORE_FILE_ORIGIN", DefaultFileOrigin),
		CORSOrigins: splitAndTrim(getenv("ENCORE_CORS_ORIGINS", "")),

		// Auth
		SessionKey:    requireEnv("ENCORE_SESSION_KEY"),
		CookieSecure:  mustBool("ENCORE_COOKIE_SECURE", true),
		AdminEmail:    requireEnv("ENCORE_ADMIN_EMAIL"),
		AdminPassword: getenv("ENCORE_ADMIN_PASSWORD", ""),
		AdminHash:     getenv("ENCORE_ADMIN_PASSWORD_HASH", ""),
		LoginBurst:    getenvInt("ENCORE_LOGIN_BURST", 5),
		LoginRefill:   getenvInt("ENCORE_LOGIN_REFILL_PER_MIN", 5),

		// Settings document
		SettingsBackend: strings.ToLower(getenv("ENCORE_SETTINGS_BACKEND", "file")),
		SettingsFile:    getenv("ENCORE_SETTINGS_FILE", "/data/site-settings.json"),
		SeedFile:        getenv("ENCORE_SEED_FILE", ""),

		// Uploads
		UploadBackend:   strings.ToLower(getenv("ENCORE_UPLOAD_BACKEND", "local")),
		UploadDir:       getenv("ENCORE_UPLOAD_DIR", "/data/uploads"),
		MediaFolder:     getenv("ENCORE_MEDIA_FOLDER", "media"),
		MaxUploadSize:   int64(getenvInt("ENCORE_MAX_UPLOAD_MB", 200)) << 20,
		MinIOEndpoint:   getenv("ENCORE_MINIO_ENDPOINT", ""),
		MinIOAccessKey:  getenv("ENCORE_MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:  getenv("ENCORE_MINIO_SECRET_KEY", ""),
		MinIOBucket:     getenv("ENCORE_MINIO_BUCKET", "encore-uploads"),
		MinIOUseSSL:     mustBool("ENCORE_MINIO_USE_SSL", true),
		FFmpegBin:       getenv("ENCORE_FFMPEG_BIN", "ffmpeg"),
		RefreshInterval: mustDuration("ENCORE_CATALOG_REFRESH_INTERVAL", 15*time.Minute),
		RequestTimeout:  mustDuration("ENCORE_REQUEST_TIMEOUT", 15*time.Second),
		ActionTimeout:   mustDuration("ENCORE_ACTION_TIMEOUT", 5*time.Minute),

		// Redis settings
		RedisAddr:             getenv("ENCORE_REDIS_ADDR", ""),
		RedisUser:             getenv("ENCORE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ENCORE_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("ENCORE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ENCORE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("ENCORE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("ENCORE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("ENCORE_TRUST_PROXY", true),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func (c *Config) validate() {
	if c.AdminPassword == "" && c.AdminHash == "" {
		panic("❌ FATAL: ENCORE_ADMIN_PASSWORD or ENCORE_ADMIN_PASSWORD_HASH must be set")
	}

	switch c.SettingsBackend {
	case "file":
	case "redis":
		if c.RedisAddr == "" {
			panic("❌ FATAL: Required environment variable ENCORE_REDIS_ADDR is not set")
		}
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			panic("❌ FATAL: ENCORE_REDIS_PASSWORD is required when ENCORE_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid ENCORE_SETTINGS_BACKEND %q (want file or redis)", c.SettingsBackend))
	}

	switch c.UploadBackend {
	case "local":
	case "minio":
		c.MinIOEndpoint = requireEnv("ENCORE_MINIO_ENDPOINT")
		c.MinIOAccessKey = requireEnv("ENCORE_MINIO_ACCESS_KEY")
		c.MinIOSecretKey = requireEnv("ENCORE_MINIO_SECRET_KEY")
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid ENCORE_UPLOAD_BACKEND %q (want local or minio)", c.UploadBackend))
	}

	if c.MaxUploadSize <= 0 {
		panic("❌ FATAL: ENCORE_MAX_UPLOAD_MB must be positive")
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	for _, s := range []*string{&cp.SessionKey, &cp.AdminPassword, &cp.AdminHash, &cp.RedisPassword, &cp.MinIOSecretKey} {
		if *s != "" {
			*s = "***REDACTED***"
		}
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
