package ws

import (
	"context"
	"fmt"
	"log"
	"time"

	"fruitRouletteServer/config"
	"fruitRouletteServer/db"
	"fruitRouletteServer/state"

	"github.com/go-co-op/gocron/v2"
)

const persistTimeout = 10 * time.Second

// SessionStore caches the session and mirrors the open round's wagers
type SessionStore interface {
	SaveSession(ctx context.Context, s state.SessionState) error
	MirrorWagers(ctx context.Context, sessionID string, roundID uint64, wagers map[string]int64) error
	CleanupWagers(ctx context.Context, sessionID string, roundID uint64) error
}

// persistJob is one write for the persistence worker. Exactly one of
// settlement and wagers is set.
type persistJob struct {
	version    uint64
	settlement *state.Settlement
	wagers     *state.Snapshot
}

// RoundLoop drives the engine clock and fans engine events out to the hub,
// the archive and the session store.
type RoundLoop struct {
	engine  *state.RoundEngine
	hub     *Hub
	archive db.RoundArchive // nil = no archive
	store   SessionStore

	scheduler   gocron.Scheduler
	unsubscribe func()

	jobs       chan persistJob
	quit       chan struct{}
	workerDone chan struct{}
}

func NewRoundLoop(engine *state.RoundEngine, hub *Hub, archive db.RoundArchive, store SessionStore) *RoundLoop {
	return &RoundLoop{
		engine:  engine,
		hub:     hub,
		archive: archive,
		store:   store,
	}
}

// Start subscribes to the engine and begins ticking once per second
func (l *RoundLoop) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(config.TickInterval),
		gocron.NewTask(l.tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return fmt.Errorf("failed to schedule round ticker: %w", err)
	}

	l.jobs = make(chan persistJob, config.PersistQueueSize)
	l.quit = make(chan struct{})
	l.workerDone = make(chan struct{})
	go l.persistWorker()

	l.scheduler = sched
	l.unsubscribe = l.engine.Subscribe(l.handleEvent)
	sched.Start()

	snap := l.engine.Snapshot()
	log.Printf("🎰 Round loop started - Round %d, %ds on the clock", snap.RoundID, snap.SecondsRemaining)
	return nil
}

// Stop halts the ticker, detaches from the engine and flushes queued writes
func (l *RoundLoop) Stop() error {
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	if l.scheduler == nil {
		return nil
	}
	err := l.scheduler.Shutdown()
	l.scheduler = nil

	close(l.quit)
	<-l.workerDone
	log.Println("🛑 Round loop stopped")
	return err
}

func (l *RoundLoop) tick() {
	if _, err := l.engine.Tick(); err != nil {
		log.Printf("⚠️  Tick rejected: %v", err)
	}
}

// handleEvent runs after the engine lock is released
func (l *RoundLoop) handleEvent(ev state.Event) {
	l.hub.Broadcast(config.RoundChannel, roundStateMessage(ev))

	if ev.Settlement != nil {
		l.onSettled(ev.Settlement)
		l.enqueue(persistJob{version: ev.Snapshot.Version, settlement: ev.Settlement})
		return
	}

	switch ev.Kind {
	case state.EventBetPlaced, state.EventBetAdjusted, state.EventBetsCleared,
		state.EventBetsDoubled, state.EventRoundReset:
		snap := ev.Snapshot
		l.enqueue(persistJob{version: snap.Version, wagers: &snap})
	}
}

func (l *RoundLoop) onSettled(s *state.Settlement) {
	log.Printf("🎲 Round %d settled - Winner: %s (%sx), Wagered: %d, Payout: %d, Balance: %d",
		s.RoundID, s.WinningSegmentID, s.Multiplier.String(), s.TotalWagered, s.Payout, s.BalanceAfter)

	// Result goes out before history so clients can animate the wheel first
	l.hub.Broadcast(config.RoundChannel, roundResultMessage(s))
	l.hub.Broadcast(config.RoundChannel, roundHistoryMessage(s.Session.History))
	log.Printf("📜 Broadcasted updated round history (%d rounds)", len(s.Session.History))
}

func (l *RoundLoop) enqueue(job persistJob) {
	select {
	case l.jobs <- job:
	case <-l.quit:
		log.Printf("⚠️  Round loop stopped, dropping write for version %d", job.version)
	}
}

// persistWorker applies writes one at a time. Observers run on the callers'
// goroutines, so jobs can arrive out of version order: a wager mirror older
// than anything already applied is stale and skipped. Settlements are always
// archived, but only the latest one is saved as the session.
func (l *RoundLoop) persistWorker() {
	defer close(l.workerDone)

	var applied, savedRound uint64
	run := func(job persistJob) {
		if job.settlement == nil && job.version <= applied {
			return
		}
		if job.version > applied {
			applied = job.version
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if job.settlement != nil {
			latest := job.settlement.RoundID > savedRound
			if latest {
				savedRound = job.settlement.RoundID
			}
			l.persistSettlement(ctx, job.settlement, latest)
			return
		}
		if err := l.store.MirrorWagers(ctx, job.wagers.SessionID, job.wagers.RoundID, job.wagers.Wagers); err != nil {
			log.Printf("⚠️  Failed to mirror wagers in Redis: %v", err)
		}
	}

	for {
		select {
		case job := <-l.jobs:
			run(job)
		case <-l.quit:
			for {
				select {
				case job := <-l.jobs:
					run(job)
				default:
					return
				}
			}
		}
	}
}

func (l *RoundLoop) persistSettlement(ctx context.Context, s *state.Settlement, saveSession bool) {
	if l.archive != nil {
		if err := l.archive.StoreRound(ctx, db.RecordFromSettlement(s)); err != nil {
			log.Printf("⚠️  Failed to store round history in %s: %v", l.archive.Name(), err)
		}
	}
	if saveSession {
		if err := l.store.SaveSession(ctx, s.Session); err != nil {
			log.Printf("⚠️  Failed to cache session in Redis: %v", err)
		}
	}
	if err := l.store.CleanupWagers(ctx, s.SessionID, s.RoundID); err != nil {
		log.Printf("⚠️  Failed to cleanup Redis: %v", err)
	}
}
