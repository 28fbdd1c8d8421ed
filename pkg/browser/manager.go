package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formflow/pkg/logging"
)

// SessionManager owns the Playwright driver, one Chromium process per
// launch mode, and the tabs opened in them. Each session is an isolated
// browser context with a single page.
type SessionManager struct {
	mu          sync.RWMutex
	pw          *playwright.Playwright
	browsers    map[launchKey]playwright.Browser
	sessions    map[string]*Session
	maxSessions int
	idleTimeout time.Duration
	logger      *logging.Logger
}

// launchKey identifies the launch options a browser process was started
// with. Sessions with matching options share the process.
type launchKey struct {
	headless bool
	slowMo   float64
}

// NewSessionManager returns a manager that has not started Playwright yet.
func NewSessionManager(logger *logging.Logger) *SessionManager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SessionManager{
		browsers:    make(map[launchKey]playwright.Browser),
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		idleTimeout: time.Duration(DefaultIdleTimeout) * time.Second,
		logger:      logger,
	}
}

// Initialize installs Chromium if needed and starts the driver. Calling it
// again is a no-op.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pw != nil {
		return nil
	}

	// Driver output would corrupt the terminal UI.
	run := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(run); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(run)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	m.pw = pw
	m.logger.Infof("playwright started")
	return nil
}

// StartSession opens a tab named name.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pw == nil {
		return nil, errors.New("session manager not initialized")
	}
	if _, ok := m.sessions[name]; ok {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}
	opts = opts.withDefaults()

	b, err := m.browserLocked(launchKey{headless: opts.Headless, slowMo: opts.SlowMo})
	if err != nil {
		return nil, err
	}
	bc, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	page, err := bc.NewPage()
	if err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	now := time.Now()
	s := &Session{
		Name:       name,
		Browser:    b,
		Context:    bc,
		Page:       page,
		Headless:   opts.Headless,
		CreatedAt:  now,
		LastUsedAt: now,
		CurrentURL: "about:blank",
	}
	m.sessions[name] = s
	m.logger.Infof("session %q started (headless=%t)", name, opts.Headless)
	return s, nil
}

func (m *SessionManager) browserLocked(key launchKey) (playwright.Browser, error) {
	if b, ok := m.browsers[key]; ok && b.IsConnected() {
		return b, nil
	}
	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(key.headless)}
	if key.slowMo > 0 {
		launch.SlowMo = playwright.Float(key.slowMo)
	}
	b, err := m.pw.Chromium.Launch(launch)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	m.browsers[key] = b
	return b, nil
}

// GetSession returns the open session named name.
func (m *SessionManager) GetSession(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[name]
	if !ok {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return s, nil
}

// ListSessions describes every open session.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// HasSessions reports whether any session is open.
func (m *SessionManager) HasSessions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) > 0
}

// CloseSession closes the tab named name. Close errors are logged and the
// session is always forgotten.
func (m *SessionManager) CloseSession(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[name]; !ok {
		return fmt.Errorf("session %q not found", name)
	}
	if err := m.closeLocked(name); err != nil {
		m.logger.Warnf("%v", err)
	}
	return nil
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() error {
	return m.closeWhere(func(*Session) bool { return true })
}

// CleanupIdleSessions closes sessions unused for longer than the idle
// timeout.
func (m *SessionManager) CleanupIdleSessions() error {
	cutoff := time.Now().Add(-m.idleTimeout)
	return m.closeWhere(func(s *Session) bool { return s.lastUsed().Before(cutoff) })
}

func (m *SessionManager) closeWhere(match func(*Session) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for name, s := range m.sessions {
		if !match(s) {
			continue
		}
		if err := m.closeLocked(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *SessionManager) closeLocked(name string) error {
	s := m.sessions[name]
	delete(m.sessions, name)
	m.logger.Infof("session %q closed", name)
	return s.close()
}

// Shutdown closes all sessions and browsers and stops the driver.
func (m *SessionManager) Shutdown() error {
	if err := m.CloseAll(); err != nil {
		m.logger.Warnf("shutdown: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.browsers {
		if err := b.Close(); err != nil {
			m.logger.Warnf("close browser: %v", err)
		}
		delete(m.browsers, key)
	}
	if m.pw == nil {
		return nil
	}
	err := m.pw.Stop()
	m.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
