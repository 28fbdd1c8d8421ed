package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/entrhq/formflow/pkg/coordinator"
	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/logging"
	"github.com/entrhq/formflow/pkg/player"
	"github.com/entrhq/formflow/pkg/store"
)

// Backend is the part of the coordinator the TUI drives.
type Backend interface {
	ListFlows(ctx context.Context, opts store.ListOptions) ([]*flow.Record, error)
	PlayFlow(ctx context.Context, tabID, id string) (player.Report, error)
	DeleteFlow(ctx context.Context, id string) error
	DuplicateFlow(ctx context.Context, id string) (*flow.Record, error)
	StartRecording(ctx context.Context, tabID, pageURL string) (coordinator.Status, error)
	StopRecording(ctx context.Context) flow.Actions
	SaveRecording(ctx context.Context, name string) (*flow.Record, error)
	DiscardRecording()
	Subscribe() (<-chan coordinator.Event, func())
}

var _ Backend = (*coordinator.Coordinator)(nil)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

type mode int

const (
	modeBrowse mode = iota
	modeRecording
	modeNaming
	modePlaying
)

// recentActions is how many recorded actions the recording view lists.
const recentActions = 8

// model is the Bubble Tea state of the flow browser.
type model struct {
	ctx     context.Context
	backend Backend
	tabID   string
	logger  *logging.Logger

	// recordURL starts the session in recording mode when set.
	recordURL string

	list     list.Model
	spinner  spinner.Model
	progress progress.Model
	input    textinput.Model

	mode mode

	// Recording state
	recorded []string
	count    int

	// Playback state
	playing *flow.Record
	step    int
	total   int

	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

type flowsLoadedMsg struct {
	flows []*flow.Record
	err   error
}

type recordingStartedMsg struct {
	status coordinator.Status
	err    error
}

type recordingStoppedMsg struct {
	actions flow.Actions
}

type savedMsg struct {
	rec *flow.Record
	err error
}

type playFinishedMsg struct {
	rec    *flow.Record
	report player.Report
	err    error
}

// opDoneMsg reports a one-shot operation such as delete or copy.
type opDoneMsg struct {
	message string
	err     error
	reload  bool
}

func newModel(ctx context.Context, backend Backend, tabID, recordURL string, logger *logging.Logger) *model {
	if logger == nil {
		logger = logging.Discard()
	}

	l := list.New(nil, newFlowDelegate(), 0, 0)
	l.Title = "Saved flows"
	l.SetShowStatusBar(true)
	l.Styles.Title = headerStyle.Padding(0, 1)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = recordingStyle

	in := textinput.New()
	in.Placeholder = "Flow name"
	in.CharLimit = 120

	m := &model{
		ctx:       ctx,
		backend:   backend,
		tabID:     tabID,
		logger:    logger,
		recordURL: recordURL,
		list:      l,
		spinner:   s,
		progress:  progress.New(progress.WithGradient(string(salmonPink), string(mintGreen))),
		input:     in,
	}
	if recordURL != "" {
		m.mode = modeRecording
	}
	return m
}
