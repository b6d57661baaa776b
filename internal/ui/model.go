package ui

import (
	"context"
	"errors"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"vidgrab/internal/model"
	"vidgrab/internal/pipeline"
	"vidgrab/internal/progress"
)

// ErrAborted is returned when the user quits before a download finished.
var ErrAborted = errors.New("aborted by user")

// Options are the download settings the picker applies to the chosen row.
type Options struct {
	OutDir       string
	UseAria2c    bool
	AudioBitrate int // kbps for the MP3 shortcut; 0 means the default
}

type phase int

const (
	phaseFetching phase = iota
	phasePicking
	phaseDownloading
	phaseDone
	phaseFailed
)

const jobID = "tui"

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	svc  *pipeline.Service
	url  string
	opts Options

	phase   phase
	inspect pipeline.Inspection
	cursor  int
	req     model.DownloadRequest
	dl      download
	err     error

	width   int
	styles  Styles
	spinner spinner.Model
	bar     bubblesprogress.Model

	// Reporter events from the download goroutine.
	eventCh chan tea.Msg
}

// NewModel returns a picker for url that will download with svc.
func NewModel(ctx context.Context, svc *pipeline.Service, url string, opts Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()
	sp := spinner.New()
	sp.Style = sty.Spinner
	if opts.AudioBitrate == 0 {
		opts.AudioBitrate = model.DefaultAudioBitrate
	}
	return Model{
		ctx:     c,
		cancel:  cancel,
		svc:     svc,
		url:     url,
		opts:    opts,
		phase:   phaseFetching,
		styles:  sty,
		spinner: sp,
		bar:     bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40)),
		dl:      download{percent: -1},
		eventCh: make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.inspectCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case inspectedMsg:
		if msg.Err != nil {
			m.phase, m.err = phaseFailed, msg.Err
			return m, tea.Quit
		}
		m.inspect = msg.In
		m.phase = phasePicking

	case jobUpdateMsg:
		m.dl.apply(msg.U)
		return m, m.listenEventsCmd()

	case jobLogMsg:
		m.dl.lastLine = msg.L.Line
		return m, m.listenEventsCmd()

	case jobResultMsg:
		if msg.R.Err != nil {
			m.phase, m.err = phaseFailed, msg.R.Err
		} else {
			m.phase = phaseDone
			m.dl.stage = progress.StageCompleted
			m.dl.percent = 100
			m.dl.outputPath = msg.R.OutputPath
			m.dl.bytes = msg.R.Bytes
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "q", "ctrl+c", "esc":
		m.cancel()
		if m.phase != phaseDone && m.phase != phaseFailed {
			m.err = ErrAborted
		}
		return m, tea.Quit
	}
	if m.phase != phasePicking {
		return m, nil
	}

	opts := m.inspect.Options
	switch k.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(opts)-1 {
			m.cursor++
		}
	case "enter":
		if len(opts) == 0 {
			return m, nil
		}
		return m.start(model.DownloadRequest{Mode: model.ModeExact, FormatID: opts[m.cursor].ID})
	case "b":
		return m.start(model.DownloadRequest{Mode: model.ModeCapped})
	case "m":
		return m.start(model.DownloadRequest{Mode: model.ModeAudioMP3, AudioBitrateKbps: m.opts.AudioBitrate})
	case "o":
		return m.start(model.DownloadRequest{Mode: model.ModeAudioOriginal})
	}
	return m, nil
}

func (m Model) start(req model.DownloadRequest) (tea.Model, tea.Cmd) {
	req.URL = m.url
	req.OutDir = m.opts.OutDir
	req.UseAccelerator = m.opts.UseAria2c
	m.req = req
	m.phase = phaseDownloading
	m.dl = download{stage: progress.StageQueued, percent: -1, status: "Starting"}
	return m, tea.Batch(m.downloadCmd(req), m.listenEventsCmd())
}

func (m Model) inspectCmd() tea.Cmd {
	return func() tea.Msg {
		in, err := m.svc.Inspect(m.ctx, m.url)
		return inspectedMsg{In: in, Err: err}
	}
}

// downloadCmd starts the job in the background; results arrive as reporter events.
func (m Model) downloadCmd(req model.DownloadRequest) tea.Cmd {
	svc := m.svc.With(pipeline.WithReporter(teaReporter{ch: m.eventCh, done: m.ctx.Done()}), pipeline.WithJobID(jobID))
	ctx := m.ctx
	return func() tea.Msg {
		go func() { _, _ = svc.RunJob(ctx, req) }()
		return nil
	}
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case msg := <-m.eventCh:
			return msg
		}
	}
}

// Result returns the finished download, or the error that ended the program.
func (m Model) Result() (pipeline.Result, error) {
	if m.phase == phaseDone {
		return pipeline.Result{
			Request: m.req,
			File:    model.DownloadedFile{Path: m.dl.outputPath, Bytes: m.dl.bytes},
		}, nil
	}
	if m.err != nil {
		return pipeline.Result{Request: m.req}, m.err
	}
	return pipeline.Result{Request: m.req}, ErrAborted
}
