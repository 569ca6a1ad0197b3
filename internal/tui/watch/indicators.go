package watch

import (
	"strings"
	"time"
)

// tickerFrames rotate once per timer tick. A frozen frame means the
// render loop itself is stuck, independent of delivery activity.
var tickerFrames = [...]string{"◴", "◷", "◶", "◵"}

// Ticker proves the render loop is alive.
type Ticker struct {
	index    int
	lastTick time.Time
}

func NewTicker() Ticker {
	return Ticker{lastTick: time.Now()}
}

func (t *Ticker) Tick() {
	t.index = (t.index + 1) % len(tickerFrames)
	t.lastTick = time.Now()
}

func (t Ticker) Current() string {
	return tickerFrames[t.index]
}

const spinnerLevels = 5

// Spinner is the delivery activity meter: it fills on every event and
// drains while the stream is quiet.
type Spinner struct {
	level     int
	lastEvent time.Time
}

func NewSpinner() Spinner {
	return Spinner{}
}

func (s *Spinner) OnEvent() {
	s.level = spinnerLevels
	s.lastEvent = time.Now()
}

// Decay drains one level per two quiet seconds.
func (s *Spinner) Decay() {
	if s.level == 0 {
		return
	}
	quiet := int(time.Since(s.lastEvent) / (2 * time.Second))
	if quiet >= spinnerLevels {
		s.level = 0
		return
	}
	if left := spinnerLevels - quiet; left < s.level {
		s.level = left
	}
}

func (s Spinner) Render(theme Theme) string {
	var b strings.Builder
	for i := range spinnerLevels {
		if i < s.level {
			b.WriteString(theme.TickerActive.Render("●"))
		} else {
			b.WriteString(theme.TickerInactive.Render("○"))
		}
	}
	return b.String()
}

func (s Spinner) LastEvent() time.Time {
	return s.lastEvent
}
