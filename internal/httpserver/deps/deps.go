package deps

import (
	"time"

	"github.com/MrSnakeDoc/encore/internal/auth"
	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedHosts []string // Host headers allowed to reach the API
	AllowedCIDRS []string // IPs allowed to access healthz/readyz/infra/metrics
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins  []string // site origins allowed to call the API with credentials

	Store *site.Store         // settings document
	Media *library.Service    // media library actions and catalog
	Auth  *auth.Authenticator // admin session
	Blobs blob.Store          // upload storage
	// UploadDir is the local upload root served under /uploads; empty when
	// files live in object storage.
	UploadDir   string
	MediaFolder string // default upload folder

	SettingsBackend string        // "file" | "redis", reported by /infra
	RedisClient     *redis.Client // nil unless SettingsBackend=redis

	MaxUploadSize  int64
	LoginBurst     int
	LoginRefill    int
	RequestTimeout time.Duration
	ActionTimeout  time.Duration

	ReloadTrigger chan struct{} // manual catalog reload
}
