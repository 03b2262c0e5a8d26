// Package tui provides the Bubble Tea play screen.
//
// Update is the single event queue of a session: key presses, the one-second tick,
// the counterattack watch and deferred advances all reach the engine through it.
// Backend calls run as commands and only ever report back a notice.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/model"
	"github.com/verte-zerg/chordarena/internal/session"
)

const (
	tickInterval  = time.Second
	watchInterval = 250 * time.Millisecond
	callTimeout   = 5 * time.Second
	offlineNotice = "Offline: progress not synced."
)

type screen int

const (
	screenLoading screen = iota
	screenStory
	screenPlay
	screenVictory
	screenResult
)

type (
	tickMsg    struct{ gen int }
	watchMsg   struct{ gen int }
	advanceMsg struct{ token session.Token }

	profileMsg struct {
		profile model.Profile
		err     error
	}
	finishedMsg struct {
		outcome backend.Outcome
		// rebased is the stored profile with pending sessions replayed, set when
		// play ran on a placeholder and the reload succeeded.
		rebased *model.Profile
		err     error
	}
	noticeMsg struct {
		text string
	}
)

// Model implements the Bubble Tea play UI.
type Model struct {
	config  model.Config
	backend backend.Backend
	log     zerolog.Logger
	rnd     *rand.Rand
	clock   session.Clock

	keys keyMap
	help help.Model

	width  int
	height int

	screen  screen
	profile model.Profile
	// loaded is false while profile is a placeholder from a failed load. A placeholder
	// is never saved; its sessions wait in pending until the stored profile is back.
	loaded  bool
	pending []session.Summary

	engine   *session.Engine
	watchdog *session.Watchdog
	// gen invalidates timer loops left over from before a pause.
	gen int

	story    arena.Arena
	victory  arena.Arena
	hits     int
	taunt    string
	notice   string
	outcome  *backend.Outcome
	summary  session.Summary
	finished bool
	// quitting exits once the running sync reports back.
	quitting bool
}

// NewModel constructs the play UI. A nil clock uses the wall clock.
func NewModel(cfg model.Config, b backend.Backend, rnd *rand.Rand, clock session.Clock, logger zerolog.Logger) *Model {
	if clock == nil {
		clock = session.SystemClock{}
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Model{
		config:  cfg,
		backend: b,
		log:     logger,
		rnd:     rnd,
		clock:   clock,
		keys:    defaultKeys(),
		help:    help.New(),
		screen:  screenLoading,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadProfile()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case profileMsg:
		if msg.err != nil {
			m.fail("failed to load profile", msg.err)
		}
		m.profile = msg.profile
		m.loaded = msg.err == nil
		return m, m.newSession()
	case tickMsg:
		if msg.gen != m.gen || !m.running() {
			return m, nil
		}
		events := m.engine.Tick(tickInterval.Seconds())
		if cmd := m.react(events); cmd != nil {
			return m, cmd
		}
		return m, m.tickCmd()
	case watchMsg:
		if msg.gen != m.gen || !m.running() {
			return m, nil
		}
		var cmd tea.Cmd
		if m.watchdog.Due() {
			m.hits++
			m.taunt = m.engine.Arena().Taunt(m.hits)
			cmd = m.react(m.engine.Counterattack())
		}
		if cmd != nil {
			return m, cmd
		}
		return m, m.watchCmd()
	case advanceMsg:
		if m.engine != nil {
			m.engine.Advance(msg.token)
		}
		return m, nil
	case finishedMsg:
		m.outcome = &msg.outcome
		if msg.rebased != nil {
			m.profile = *msg.rebased
			m.loaded = true
			m.pending = nil
		}
		if msg.err != nil {
			m.fail("failed to sync session", msg.err)
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	case noticeMsg:
		m.notice = msg.text
		return m, nil
	}
	return m, nil
}

func (m *Model) running() bool {
	return m.screen == screenPlay && m.engine != nil &&
		m.engine.Phase() == session.PhasePlaying && !m.engine.Suspended()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	switch m.screen {
	case screenStory:
		if key.Matches(msg, m.keys.Continue) {
			return m.dismissStory()
		}
	case screenVictory:
		if key.Matches(msg, m.keys.Continue) {
			return m.enterNextArena()
		}
	case screenPlay:
		switch {
		case key.Matches(msg, m.keys.Answer):
			return m.answer(int(msg.Runes[0] - '1'))
		case key.Matches(msg, m.keys.Abandon):
			if m.engine.End(session.EndAbandoned) {
				return m.finish()
			}
		}
	case screenResult:
		switch {
		case key.Matches(msg, m.keys.Continue):
			if m.syncing() {
				return nil
			}
			return m.newSession()
		case key.Matches(msg, m.keys.Abandon):
			return m.quit()
		}
	}
	return nil
}

// quit ends a running session and waits for its sync before exiting.
// Pressing quit again while waiting exits at once.
func (m *Model) quit() tea.Cmd {
	if m.quitting {
		return tea.Quit
	}
	switch {
	case m.engine != nil && m.engine.Phase() == session.PhasePlaying:
		m.quitting = true
		m.engine.End(session.EndAbandoned)
		return m.finish()
	case m.syncing():
		m.quitting = true
		return nil
	}
	return tea.Quit
}

func (m *Model) syncing() bool {
	return m.finished && m.outcome == nil
}

func (m *Model) answer(slot int) tea.Cmd {
	opts := m.engine.State().Options
	if slot < 0 || slot >= len(opts) {
		return nil
	}
	res := m.engine.Submit(session.Answer{Name: opts[slot], Slot: slot})
	if !res.Accepted {
		return nil
	}
	if res.Correct {
		m.watchdog.Reset()
		m.taunt = ""
	}
	cmd := m.react(res.Events)
	if res.Token != 0 {
		return tea.Batch(cmd, advanceCmd(res.Token))
	}
	return cmd
}

// react turns engine events into screen changes. It returns nil when play continues.
func (m *Model) react(events []session.Event) tea.Cmd {
	for _, ev := range events {
		switch ev.Kind {
		case session.EventEnded:
			return m.finish()
		case session.EventBossDefeated:
			m.watchdog.Pause()
			m.victory = m.engine.Arena()
			m.screen = screenVictory
			m.log.Info().Int("arena", m.victory.ID).Int("sessionXp", ev.XP).Msg("boss defeated")
			return m.unlock(m.victory.ID)
		}
	}
	return nil
}

// newSession picks the effective arena and starts, or shows its story first.
func (m *Model) newSession() tea.Cmd {
	p := m.profile
	a := arena.Effective(p.TotalXP, p.UnlockedArena, p.LastPlayedArena)
	m.engine = session.New(session.Options{
		Rand:         m.rnd,
		Clock:        m.clock,
		Arena:        a,
		Watch:        arena.NewBossWatch(p.TotalXP, p.UnlockedArena, a),
		StartSeconds: float64(m.config.StartSeconds),
	})
	m.watchdog = session.NewWatchdog(m.clock, a.Cadence())
	m.outcome = nil
	m.finished = false
	m.taunt = ""
	m.hits = 0
	if !m.profile.HasSeen(a.StoryID) {
		m.story = a
		m.screen = screenStory
		return nil
	}
	return m.play()
}

// play starts or resumes the engine and arms fresh timer loops.
func (m *Model) play() tea.Cmd {
	m.screen = screenPlay
	if m.engine.Phase() == session.PhaseIdle {
		m.engine.Start()
		m.watchdog.Reset()
	} else {
		m.engine.Resume()
		m.watchdog.Resume()
	}
	m.gen++
	cmds := []tea.Cmd{m.tickCmd(), m.watchCmd()}
	if tok := m.engine.Pending(); tok != 0 {
		cmds = append(cmds, advanceCmd(tok))
	}
	return tea.Batch(cmds...)
}

func (m *Model) dismissStory() tea.Cmd {
	m.profile = m.profile.MarkSeen(m.story.StoryID)
	if !m.loaded {
		return m.play()
	}
	return tea.Batch(m.saveProfile(m.profile), m.play())
}

func (m *Model) enterNextArena() tea.Cmd {
	next, ok := arena.Next(m.victory)
	if !ok {
		return m.play()
	}
	m.profile.UnlockedArena = max(m.profile.UnlockedArena, next.ID)
	m.engine.EnterArena(next, arena.NewBossWatch(m.profile.TotalXP, m.profile.UnlockedArena, next))
	m.watchdog.SetCadence(next.Cadence())
	m.hits = 0
	m.taunt = ""
	if !m.profile.HasSeen(next.StoryID) {
		m.story = next
		m.screen = screenStory
		return nil
	}
	return m.play()
}

// finish folds the summary into the profile once and syncs it in the background.
func (m *Model) finish() tea.Cmd {
	if m.finished {
		return nil
	}
	m.finished = true
	m.gen++
	m.summary = m.engine.Summary()
	m.profile = m.summary.Apply(m.profile)
	if !m.loaded {
		m.pending = append(m.pending, m.summary)
	}
	m.screen = screenResult
	m.log.Info().
		Str("reason", string(m.summary.Reason)).
		Int("score", m.summary.Score).
		Int("xp", m.summary.XP).
		Int("level", m.summary.Level).
		Msg("session ended")
	return m.sync(m.summary)
}

func (m *Model) fail(what string, err error) {
	m.log.Warn().Err(err).Msg(what)
	m.notice = offlineNotice
}

// ----------------------------- commands ------------------------------------

func (m *Model) tickCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (m *Model) watchCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(watchInterval, func(time.Time) tea.Msg { return watchMsg{gen: gen} })
}

func advanceCmd(token session.Token) tea.Cmd {
	return tea.Tick(session.FeedbackDelay, func(time.Time) tea.Msg { return advanceMsg{token: token} })
}

func (m *Model) loadProfile() tea.Cmd {
	b, deviceID := m.backend, m.config.DeviceID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		p, err := backend.LoadOrCreate(ctx, b, deviceID)
		return profileMsg{profile: p, err: err}
	}
}

func (m *Model) saveProfile(p model.Profile) tea.Cmd {
	b, logger := m.backend, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := b.SaveProfile(ctx, p.DeviceID, p); err != nil {
			logger.Warn().Err(err).Msg("failed to save profile")
			return noticeMsg{text: offlineNotice}
		}
		return nil
	}
}

func (m *Model) unlock(fromArenaID int) tea.Cmd {
	b, logger, deviceID := m.backend, m.log, m.profile.DeviceID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := b.UnlockNextArena(ctx, deviceID, fromArenaID); err != nil {
			logger.Warn().Err(err).Int("arena", fromArenaID).Msg("failed to unlock arena")
			return noticeMsg{text: offlineNotice}
		}
		return nil
	}
}

// sync saves the profile, records s and pushes mission progress. A placeholder
// profile is not saved: the stored one is reloaded and the pending sessions are
// replayed onto it instead.
func (m *Model) sync(s session.Summary) tea.Cmd {
	b, p, loaded := m.backend, m.profile, m.loaded
	pending := append([]session.Summary(nil), m.pending...)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*callTimeout)
		defer cancel()
		save := &p
		var rebased *model.Profile
		var loadErr error
		if !loaded {
			save = nil
			stored, err := backend.LoadOrCreate(ctx, b, p.DeviceID)
			if err != nil {
				loadErr = fmt.Errorf("failed to reload profile: %w", err)
			} else {
				replayed := rebase(stored, p, pending)
				save, rebased = &replayed, &replayed
			}
		}
		out, err := backend.FinishSession(ctx, b, p.DeviceID, save, s.Result(), s.Counters)
		return finishedMsg{outcome: out, rebased: rebased, err: errors.Join(loadErr, err)}
	}
}

// rebase replays sessions played on placeholder onto the stored profile.
func rebase(stored, placeholder model.Profile, sessions []session.Summary) model.Profile {
	for _, id := range placeholder.SeenStories {
		stored = stored.MarkSeen(id)
	}
	stored.UnlockedArena = max(stored.UnlockedArena, placeholder.UnlockedArena)
	for _, s := range sessions {
		stored = s.Apply(stored)
	}
	return stored
}

// Summary returns the last finished session, for printing after the program exits.
func (m *Model) Summary() (session.Summary, bool) {
	return m.summary, m.finished
}

func formatClock(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
