package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/recorder"
)

// Tabs exposes manager sessions as tabs addressed by session name.
// Sessions are started on first use with the configured options.
type Tabs struct {
	manager *SessionManager
	opts    SessionOptions
	logger  *logging.Logger
	mu      sync.Mutex
}

// NewTabs returns a tab registry over m.
func NewTabs(m *SessionManager, opts SessionOptions, logger *logging.Logger) *Tabs {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tabs{manager: m, opts: opts, logger: logger}
}

// Session returns the session for tabID, starting it if needed.
func (t *Tabs) Session(tabID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, err := t.manager.GetSession(tabID); err == nil {
		return s, nil
	}
	s, err := t.manager.StartSession(tabID, t.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab %s: %w", tabID, err)
	}
	t.logger.Infof("opened tab %s", tabID)
	return s, nil
}

// Source installs capture in tabID and loads pageURL when the tab is
// elsewhere. Capture is installed first so the loaded document is
// observed from its first event.
func (t *Tabs) Source(ctx context.Context, tabID, pageURL string) (recorder.EventSource, error) {
	s, err := t.Session(tabID)
	if err != nil {
		return nil, err
	}
	es, err := s.Events(t.logger.With("capture"))
	if err != nil {
		return nil, err
	}
	if pageURL != "" && s.Page.URL() != pageURL {
		if err := s.Navigate(ctx, pageURL, NavigateOptions{}); err != nil {
			return nil, err
		}
	}
	return es, nil
}

// Page returns tabID adapted for playback.
func (t *Tabs) Page(_ context.Context, tabID string) (player.Page, error) {
	s, err := t.Session(tabID)
	if err != nil {
		return nil, err
	}
	return s.PlayerPage(t.logger.With("page")), nil
}
