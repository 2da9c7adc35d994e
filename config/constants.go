package config

import "time"

/* =========================
   GAME DEFAULTS
========================= */

const (
	// Betting window before the wheel spins
	DefaultCountdownSeconds = 30

	// Balance given to a new session and after a game over
	DefaultStartingBalance = 10000

	// Settled rounds kept in the session history
	DefaultHistoryCapacity = 10

	// Largest total stake on a single segment (0 disables the cap)
	DefaultMaxBetPerSegment = 500000

	// Timer tick driving the round engine
	TickInterval = 1 * time.Second

	// Pending archive/cache writes buffered ahead of the persistence worker
	PersistQueueSize = 256
)

// DefaultChipValues are the chip denominations, smallest first
var DefaultChipValues = []int64{10, 100, 1000, 5000, 50000}

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Session snapshot TTL (7 days)
	// Key: session:{sessionId}
	SessionTTL = 7 * 24 * time.Hour

	// Live wager mirror TTL (1 hour)
	// Key: round:{sessionId}:{roundId}
	RoundWagersTTL = 1 * time.Hour
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisSessionKey     = "session:%s"      // session:{sessionId}
	RedisRoundWagersKey = "round:%s:%d"     // round:{sessionId}:{roundId} (HASH segmentId -> amount)
	RedisCurrentSession = "session:current" // id of the session this server resumes
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	// Connection pool settings
	MaxOpenConns    = 25
	MaxIdleConns    = 5
	ConnMaxLifetime = 5 * time.Minute

	// Archive queries
	DefaultArchiveLimit = 50
	MaxArchiveLimit     = 500
)

/* =========================
   API CONFIGURATION
========================= */

const (
	// Server settings
	ServerPort = "8080"
	ServerHost = "0.0.0.0"

	// CORS settings
	AllowOrigin = "*"

	// Archived round lookups are immutable once written
	RoundCacheTTL     = 5 * time.Minute
	RoundCacheCleanup = 10 * time.Minute

	// Admin tokens
	AdminTokenTTL = 12 * time.Hour

	ShutdownTimeout = 10 * time.Second
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	// WebSocket settings
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	// Buffer sizes
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBufferSize  = 256

	// Message size limits
	MaxMessageSize = 64 * 1024 // 64KB

	// Channel clients subscribe to for round updates
	RoundChannel = "round"
)
