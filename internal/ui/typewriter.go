package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultTypingSpeed is the delay between revealed characters.
const DefaultTypingSpeed = 10 * time.Millisecond

// typeTickMsg advances the animation with the matching generation only.
type typeTickMsg struct{ gen int }

// Typewriter reveals a text one rune per tick. Every Start bumps the
// generation, so ticks of a replaced or stopped animation are dropped and
// stop rescheduling themselves.
type Typewriter struct {
	speed  time.Duration
	gen    int
	target []rune
	shown  int
	active bool
}

// NewTypewriter returns a stopped animation.
func NewTypewriter(speed time.Duration) Typewriter {
	if speed <= 0 {
		speed = DefaultTypingSpeed
	}
	return Typewriter{speed: speed}
}

// Start begins revealing text and returns the first tick.
func (t *Typewriter) Start(text string) tea.Cmd {
	t.gen++
	t.target = []rune(text)
	t.shown = 0
	t.active = len(t.target) > 0
	if !t.active {
		return nil
	}
	return t.tick()
}

func (t *Typewriter) tick() tea.Cmd {
	gen := t.gen
	return tea.Tick(t.speed, func(time.Time) tea.Msg { return typeTickMsg{gen: gen} })
}

// Update consumes a tick. Stale ticks return nil, ending their chain.
func (t *Typewriter) Update(msg tea.Msg) tea.Cmd {
	tm, ok := msg.(typeTickMsg)
	if !ok || tm.gen != t.gen || !t.active {
		return nil
	}
	t.shown++
	if t.shown >= len(t.target) {
		t.active = false
		return nil
	}
	return t.tick()
}

// Skip reveals the whole text at once.
func (t *Typewriter) Skip() {
	t.shown = len(t.target)
	t.active = false
	t.gen++
}

// Stop abandons the animation; pending ticks become stale.
func (t *Typewriter) Stop() {
	t.active = false
	t.gen++
}

// Active reports whether characters are still being revealed.
func (t *Typewriter) Active() bool { return t.active }

// Visible is the revealed prefix.
func (t *Typewriter) Visible() string { return string(t.target[:t.shown]) }
