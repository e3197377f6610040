package entitlements

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/evergift/evergift/app/repository"
)

const (
	DefaultSweepInterval = 15 * time.Minute
	sweepBatchSize       = 100
)

// Sweeper periodically expires overdue subscriptions so entitlements stay
// correct even for users who never trigger the lazy path by sending a
// request.
type Sweeper struct {
	resolver *Resolver
	subs     repository.SubscriptionRepository
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper. An interval of 0 uses the default.
func NewSweeper(resolver *Resolver, subs repository.SubscriptionRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		resolver: resolver,
		subs:     subs,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.loop()
	log.Infof("[Entitlements] Started subscription sweeper (interval: %s)", s.interval)
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	log.Info("[Entitlements] Stopped subscription sweeper")
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce()
		case <-s.stopCh:
			return
		}
	}
}

// SweepOnce expires one batch of overdue subscriptions and returns how
// many it processed.
func (s *Sweeper) SweepOnce() int {
	overdue, err := s.subs.ListOverdue(time.Now(), sweepBatchSize)
	if err != nil {
		log.Errorf("[Entitlements] sweep failed to list overdue subscriptions: %v", err)
		return 0
	}

	for i := range overdue {
		s.resolver.expire(&overdue[i])
	}
	if len(overdue) > 0 {
		log.Infof("[Entitlements] sweep expired %d subscriptions", len(overdue))
	}
	return len(overdue)
}
