package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"fruitRouletteServer/config"
	"fruitRouletteServer/state"

	"github.com/redis/go-redis/v9"
)

var (
	// RedisClient is the global Redis client instance
	RedisClient *redis.Client
)

// InitRedis initializes the Redis client connection
func InitRedis() error {
	log.Println("🔌 Connecting to Redis...")

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisURL,
		Password:     redisPassword,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	RedisClient = client
	log.Printf("✅ Redis connected successfully - URL: %s", redisURL)
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		log.Println("🔌 Closing Redis connection...")
		return RedisClient.Close()
	}
	return nil
}

/* =========================
   SESSION CACHE
   Redis Key: session:{sessionId} -> JSON SessionState
   Redis Key: session:current -> sessionId
========================= */

// SaveSessionState caches the session and marks it as the one to resume
func SaveSessionState(ctx context.Context, s state.SessionState) error {
	if RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := fmt.Sprintf(config.RedisSessionKey, s.SessionID)
	_, err = RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, config.SessionTTL)
		pipe.Set(ctx, config.RedisCurrentSession, s.SessionID, config.SessionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// LoadSessionState returns the cached session, nil when absent
func LoadSessionState(ctx context.Context, sessionID string) (*state.SessionState, error) {
	if RedisClient == nil {
		return nil, nil
	}

	data, err := RedisClient.Get(ctx, fmt.Sprintf(config.RedisSessionKey, sessionID)).Result()
	if err == redis.Nil {
		return nil, nil // Session doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s state.SessionState
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// LoadCurrentSession returns the session saved last, nil when none
func LoadCurrentSession(ctx context.Context) (*state.SessionState, error) {
	if RedisClient == nil {
		return nil, nil
	}

	id, err := RedisClient.Get(ctx, config.RedisCurrentSession).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}
	return LoadSessionState(ctx, id)
}

/* =========================
   LIVE WAGER MIRROR (Hash Map Structure)
   Redis Key: round:{sessionId}:{roundId} -> Hash{segmentId: amount}
========================= */

// MirrorRoundWagers replaces the mirrored wagers of the open round
func MirrorRoundWagers(ctx context.Context, sessionID string, roundID uint64, wagers map[string]int64) error {
	if RedisClient == nil {
		return nil
	}

	hashKey := fmt.Sprintf(config.RedisRoundWagersKey, sessionID, roundID)
	_, err := RedisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hashKey)
		if len(wagers) == 0 {
			return nil
		}
		fields := make(map[string]interface{}, len(wagers))
		for segmentID, amount := range wagers {
			fields[segmentID] = amount
		}
		pipe.HSet(ctx, hashKey, fields)
		pipe.Expire(ctx, hashKey, config.RoundWagersTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mirror round wagers: %w", err)
	}
	return nil
}

// GetRoundWagers reads the mirrored wagers of a round
func GetRoundWagers(ctx context.Context, sessionID string, roundID uint64) (map[string]int64, error) {
	if RedisClient == nil {
		return map[string]int64{}, nil
	}

	hashKey := fmt.Sprintf(config.RedisRoundWagersKey, sessionID, roundID)
	data, err := RedisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round wagers: %w", err)
	}

	wagers := make(map[string]int64, len(data))
	for segmentID, raw := range data {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("⚠️  Failed to parse wager for %s: %v", segmentID, err)
			continue
		}
		wagers[segmentID] = amount
	}
	return wagers, nil
}

// CleanupRoundWagers drops the mirror of a settled round
func CleanupRoundWagers(ctx context.Context, sessionID string, roundID uint64) error {
	if RedisClient == nil {
		return nil
	}

	hashKey := fmt.Sprintf(config.RedisRoundWagersKey, sessionID, roundID)
	count, _ := RedisClient.HLen(ctx, hashKey).Result()

	if err := RedisClient.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("failed to cleanup round wagers: %w", err)
	}

	if count > 0 {
		log.Printf("🧹 Cleaned up round %d wagers (%d segments)", roundID, count)
	}
	return nil
}

// RedisStore adapts the package-level session and wager helpers for the round loop
type RedisStore struct{}

func (RedisStore) SaveSession(ctx context.Context, s state.SessionState) error {
	return SaveSessionState(ctx, s)
}

func (RedisStore) MirrorWagers(ctx context.Context, sessionID string, roundID uint64, wagers map[string]int64) error {
	return MirrorRoundWagers(ctx, sessionID, roundID, wagers)
}

func (RedisStore) CleanupWagers(ctx context.Context, sessionID string, roundID uint64) error {
	return CleanupRoundWagers(ctx, sessionID, roundID)
}

/* =========================
   HEALTH CHECK
========================= */

// HealthCheck performs a Redis health check
func HealthCheck(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not initialized")
	}
	return RedisClient.Ping(ctx).Err()
}
