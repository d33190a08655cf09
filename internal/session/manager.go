package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"listingparity/internal/logging"
	"listingparity/internal/services"
)

// Initializer prepares a freshly built session, e.g. by logging in.
type Initializer func(ctx context.Context, s *Session) error

// Spec declares one session the Manager owns.
type Spec struct {
	Name    string
	Options Options
	Init    Initializer
}

// ErrNotOpen is returned when a session is requested before Open succeeded.
var ErrNotOpen = errors.New("sessions not open")

// Manager opens its sessions once, hands them out for the rest of the run, and
// closes them at the end.
type Manager struct {
	logger *slog.Logger
	specs  []Spec

	mu       sync.Mutex
	opened   bool
	openErr  error
	sessions map[string]*Session
}

// NewManager declares the sessions to open. Nothing is dialed until Open.
func NewManager(logger *slog.Logger, specs ...Spec) *Manager {
	return &Manager{
		logger: logging.NewComponentLogger(logger, "sessions"),
		specs:  specs,
	}
}

// Open builds and initializes every declared session. Concurrent and repeated
// calls share one initialization and its outcome; failures are setup errors.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened {
		return m.openErr
	}
	m.opened = true

	sessions := make(map[string]*Session, len(m.specs))
	for _, spec := range m.specs {
		s, err := New(spec.Name, spec.Options)
		if err != nil {
			m.openErr = services.Wrap(services.ErrSetup, spec.Name, "open session", "Failed to build HTTP session", err)
			closeAll(sessions)
			return m.openErr
		}
		if spec.Init != nil {
			if err := spec.Init(ctx, s); err != nil {
				s.Close()
				closeAll(sessions)
				if !errors.Is(err, services.ErrSetup) {
					err = services.Wrap(services.ErrSetup, spec.Name, "initialize session", "Session initialization failed", err)
				}
				m.openErr = err
				m.logger.Error("session initialization failed",
					logging.String(logging.FieldSource, spec.Name),
					logging.Error(err),
					logging.String(logging.FieldEventType, "session_init_failed"),
				)
				return m.openErr
			}
		}
		sessions[spec.Name] = s
		m.logger.Info("session opened",
			logging.String(logging.FieldSource, spec.Name),
			logging.String(logging.FieldEventType, "session_opened"),
		)
	}
	m.sessions = sessions
	return nil
}

// Session returns an opened session by name.
func (m *Manager) Session(name string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened || m.openErr != nil {
		return nil, ErrNotOpen
	}
	s, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", name)
	}
	return s, nil
}

// Close releases every session. The Manager can be opened again afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	closeAll(m.sessions)
	m.sessions = nil
	m.opened = false
	m.openErr = nil
}

func closeAll(sessions map[string]*Session) {
	for _, s := range sessions {
		s.Close()
	}
}
