// Package tui renders the card in a terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
)

// Card is what the terminal UI needs from the card service.
type Card interface {
	EnsureSession(ctx context.Context, id string) (string, bool, error)
	LockStatus(ctx context.Context, sessionID string) (*cardservice.LockStatus, error)
	Turn(ctx context.Context, sessionID string, pos int, dir session.Direction) (*cardservice.LockStatus, error)
	Playlist(ctx context.Context) playlist.Snapshot
	Keepsakes(ctx context.Context, sessionID string) ([]keepsake.Keepsake, error)
}

// LockEvent reports a lock transition for a session.
type LockEvent struct {
	Session string
	State   lock.State
}

type lockMsg LockEvent

type playlistSettledMsg struct{}

// Model is the terminal card.
type Model struct {
	ctx      context.Context
	card     Card
	session  string
	events   <-chan LockEvent
	settled  <-chan struct{}
	status   *cardservice.LockStatus
	selected int

	keepsakes []keepsake.Keepsake
	snapshot  playlist.Snapshot
	cursor    int
	playing   int

	notice  string
	err     error
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel opens a lock session and returns the model for it. events carries
// lock transitions; settled is closed once the playlist has loaded.
func NewModel(ctx context.Context, card Card, events <-chan LockEvent, settled <-chan struct{}) (*Model, error) {
	id, _, err := card.EnsureSession(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	st, err := card.LockStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Model{
		ctx:      ctx,
		card:     card,
		session:  id,
		events:   events,
		settled:  settled,
		status:   st,
		snapshot: card.Playlist(ctx),
		cursor:   playlist.None,
		playing:  playlist.None,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}, nil
}

// Init starts listening for unlock and playlist events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForLock(), m.waitForPlaylist(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		if m.status.State == lock.Unlocked {
			return m.handleCardKeys(msg)
		}
		return m.handleLockKeys(msg)

	case lockMsg:
		if msg.Session != m.session {
			return m, m.waitForLock()
		}
		m.refreshStatus()
		if m.status.State == lock.Unlocked {
			m.reveal()
			return m, nil
		}
		return m, m.waitForLock()

	case playlistSettledMsg:
		m.snapshot = m.card.Playlist(m.ctx)
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleLockKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.left):
		m.selected = (m.selected + lock.Digits - 1) % lock.Digits
	case key.Matches(msg, m.keys.right):
		m.selected = (m.selected + 1) % lock.Digits
	case key.Matches(msg, m.keys.up):
		m.turn(session.Up)
	case key.Matches(msg, m.keys.down):
		m.turn(session.Down)
	}
	return m, nil
}

func (m *Model) handleCardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.Tracks)
	switch {
	case key.Matches(msg, m.keys.next):
		m.cursor = playlist.Next(m.cursor, n)
	case key.Matches(msg, m.keys.prev):
		m.cursor = playlist.Prev(m.cursor, n)
	case key.Matches(msg, m.keys.enter):
		if m.cursor != playlist.None {
			m.playing = m.cursor
		}
	}
	return m, nil
}

func (m *Model) turn(dir session.Direction) {
	m.notice = ""
	st, err := m.card.Turn(m.ctx, m.session, m.selected, dir)
	switch {
	case errors.Is(err, apperr.ErrRateLimited):
		m.notice = "slow down"
	case err != nil:
		m.err = err
	default:
		m.status = st
	}
}

func (m *Model) refreshStatus() {
	st, err := m.card.LockStatus(m.ctx, m.session)
	if err != nil {
		m.err = err
		return
	}
	m.status = st
}

func (m *Model) reveal() {
	items, err := m.card.Keepsakes(m.ctx, m.session)
	if err != nil {
		m.err = err
		return
	}
	m.keepsakes = items
}

func (m *Model) waitForLock() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return nil
			}
			return lockMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForPlaylist() tea.Cmd {
	if m.settled == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-m.settled:
			return playlistSettledMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the lock until it opens, then the card's contents.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if m.status.State == lock.Unlocked {
		return m.renderCard()
	}
	return m.renderLock()
}

func (m *Model) renderLock() string {
	boxes := make([]string, lock.Digits)
	for i, d := range m.status.Digits {
		style := styles.tumbler
		if i == m.selected {
			style = styles.selected
		}
		boxes[i] = style.Render(strconv.Itoa(d))
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("A keepsake, sealed"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")
	if m.status.State == lock.Unlocking {
		b.WriteString(styles.ok.Render("click..."))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(styles.muted.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.lockHelp()))
	return b.String()
}

func (m *Model) renderCard() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Opened"))
	b.WriteString("\n")
	for _, k := range m.keepsakes {
		fmt.Fprintf(&b, "  %s\n", k.Title)
	}
	b.WriteString("\n")
	b.WriteString(styles.title.Render("Playlist"))
	b.WriteString("\n")

	switch {
	case m.snapshot.Loading:
		fmt.Fprintf(&b, "  %s loading tracks\n", m.spinner.View())
	case len(m.snapshot.Tracks) == 0:
		b.WriteString(styles.muted.Render("  no tracks"))
		b.WriteString("\n")
	default:
		for i, t := range m.snapshot.Tracks {
			marker := "  "
			if i == m.cursor {
				marker = "› "
			}
			line := fmt.Sprintf("%s%s · %s", marker, t.Title, t.Artist)
			if i == m.playing {
				line = styles.ok.Render(line + " ♪")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.cardHelp()))
	return b.String()
}

// Playing returns the index of the chosen track, or playlist.None.
func (m *Model) Playing() int { return m.playing }
