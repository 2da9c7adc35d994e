package remote

import (
	"context"
	"log"
	"sync"
	"time"

	"fruitRouletteServer/state"
)

// Mirror is a thin reconciling cache of a remote round. Between polls it
// counts the betting timer down locally; every poll replaces it wholesale.
type Mirror struct {
	backend Backend
	now     func() time.Time

	mu        sync.RWMutex
	last      RoundInfo
	fetchedAt time.Time
	synced    bool
}

func NewMirror(backend Backend) *Mirror {
	return &Mirror{backend: backend, now: time.Now}
}

// Refresh pulls the authoritative round from the backend
func (m *Mirror) Refresh(ctx context.Context) error {
	info, err := m.backend.FetchCurrentRound(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.synced && info.RoundID != m.last.RoundID {
		log.Printf("🔄 Remote round advanced %d -> %d", m.last.RoundID, info.RoundID)
	}
	m.last = *info
	m.fetchedAt = m.now()
	m.synced = true
	m.mu.Unlock()
	return nil
}

// Current returns the mirrored round with SecondsRemaining extrapolated from the last poll.
// ok is false until the first successful Refresh.
func (m *Mirror) Current() (info RoundInfo, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.synced {
		return RoundInfo{}, false
	}
	info = m.last
	if info.Phase == state.PhaseBetting {
		elapsed := int(m.now().Sub(m.fetchedAt) / time.Second)
		info.SecondsRemaining -= elapsed
		if info.SecondsRemaining < 0 {
			info.SecondsRemaining = 0
		}
	}
	return info, true
}

// PlaceBet submits through the backend and re-syncs so the mirror reflects the new balance
func (m *Mirror) PlaceBet(ctx context.Context, segmentID string, amount int64) error {
	if err := m.backend.SubmitBet(ctx, segmentID, amount); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// Run polls the backend until ctx is cancelled
func (m *Mirror) Run(ctx context.Context, pollInterval time.Duration) {
	log.Printf("📡 Remote mirror polling every %s", pollInterval)

	if err := m.Refresh(ctx); err != nil {
		log.Printf("⚠️  Initial remote sync failed: %v", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Remote mirror stopped.")
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				log.Printf("⚠️  Remote sync failed: %v", err)
			}
		}
	}
}
