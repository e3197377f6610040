package audit

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/evergift/evergift/app/models"
	"github.com/evergift/evergift/app/repository"
)

const defaultBuffer = 256

// Event is one security-relevant occurrence to be recorded. UserID is nil
// for pre-auth events.
type Event struct {
	UserID    *uint
	Action    string
	IPAddress string
	UserAgent string
	Metadata  map[string]interface{}
}

// Sink records events asynchronously and best-effort: Record never blocks
// the request path, and persistence failures are logged and swallowed. A
// dropped or failed entry is an operational signal, never a request error.
type Sink struct {
	repo    repository.AuditLogRepository
	events  chan Event
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSink creates a sink writing to the given repository. A buffer of 0
// uses the default.
func NewSink(repo repository.AuditLogRepository, buffer int) *Sink {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Sink{
		repo:   repo,
		events: make(chan Event, buffer),
		stopCh: make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.worker()
	log.Info("[AuditSink] Started")
}

// Stop drains buffered events and stops the writer.
func (s *Sink) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	log.Info("[AuditSink] Stopped")
}

// Record enqueues an event without blocking. When the buffer is full the
// event is dropped and counted against operators, not the caller.
func (s *Sink) Record(event Event) {
	select {
	case s.events <- event:
	default:
		log.Warnf("[AuditSink] buffer full, dropping %q event", event.Action)
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()

	for {
		select {
		case event := <-s.events:
			s.write(event)
		case <-s.stopCh:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-s.events:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(event Event) {
	entry := &models.AuditLogEntry{
		UserID:    event.UserID,
		Action:    event.Action,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
	}
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			log.Warnf("[AuditSink] dropping metadata for %q event: %v", event.Action, err)
		} else {
			entry.Metadata = string(data)
		}
	}

	if err := s.repo.Create(entry); err != nil {
		log.Errorf("[AuditSink] failed to persist %q event: %v", event.Action, err)
	}
}
