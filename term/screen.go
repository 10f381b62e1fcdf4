package term

import (
	"strings"
	"sync"
)

// DefaultScreenMaxLines bounds the scrollback of a ScreenEmulator.
const DefaultScreenMaxLines = 2000

// ScreenView is a snapshot of a screen's visible state.
type ScreenView struct {
	Lines        []string
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
}

// ScreenEmulator is an in-memory Emulator: raw output bytes are retained
// verbatim and also decoded into a line-oriented scrollback. Headless
// consumers and tests use it in place of a real terminal.
// ScrollOffset is the number of lines from the bottom; 0 means at bottom.
type ScreenEmulator struct {
	mu           sync.Mutex
	cols         int
	rows         int
	raw          []byte
	lines        []string
	partial      strings.Builder
	scrollOffset int
	maxLines     int
	inputSubs    map[int]func(data []byte)
	resizeSubs   map[int]func(cols, rows int)
	nextSub      int
	closed       bool
}

// NewScreenEmulator returns a screen with no viewport yet; callers size it
// with SetSize once the surrounding layout is known.
func NewScreenEmulator() *ScreenEmulator {
	return &ScreenEmulator{
		maxLines:   DefaultScreenMaxLines,
		inputSubs:  map[int]func([]byte){},
		resizeSubs: map[int]func(int, int){},
	}
}

// NewScreenEmulatorWithMaxLines bounds the scrollback at maxLines.
func NewScreenEmulatorWithMaxLines(maxLines int) *ScreenEmulator {
	s := NewScreenEmulator()
	if maxLines > 0 {
		s.maxLines = maxLines
	}
	return s
}

// Write appends output bytes in arrival order.
func (s *ScreenEmulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append(s.raw, p...)
	for _, b := range p {
		if b == '\n' {
			line := strings.TrimRight(s.partial.String(), "\r")
			s.partial.Reset()
			s.appendLine(line)
			continue
		}
		s.partial.WriteByte(b)
	}
	return len(p), nil
}

// appendLine adds one line. If the screen is scrolled up, the offset is
// increased to keep the view anchored.
func (s *ScreenEmulator) appendLine(line string) {
	s.lines = append(s.lines, line)
	if s.scrollOffset > 0 {
		s.scrollOffset++
	}
	if s.maxLines > 0 && len(s.lines) > s.maxLines {
		trim := len(s.lines) - s.maxLines
		s.lines = s.lines[trim:]
		if s.scrollOffset > len(s.lines) {
			s.scrollOffset = len(s.lines)
		}
	}
}

// Size reports the viewport dimensions; ok is false until SetSize has been
// called with nonzero dimensions.
func (s *ScreenEmulator) Size() (cols, rows int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows, s.cols > 0 && s.rows > 0
}

// SetSize updates the viewport and notifies resize listeners.
func (s *ScreenEmulator) SetSize(cols, rows int) {
	s.mu.Lock()
	if s.closed || (s.cols == cols && s.rows == rows) {
		s.mu.Unlock()
		return
	}
	s.cols, s.rows = cols, rows
	subs := make([]func(int, int), 0, len(s.resizeSubs))
	for _, fn := range s.resizeSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(cols, rows)
	}
}

// SendInput delivers keystroke bytes to input listeners, as if typed.
func (s *ScreenEmulator) SendInput(data []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	subs := make([]func([]byte), 0, len(s.inputSubs))
	for _, fn := range s.inputSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(data)
	}
}

// OnInput registers a keystroke listener.
func (s *ScreenEmulator) OnInput(fn func(data []byte)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.inputSubs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.inputSubs, id)
	}
}

// OnResize registers a dimension-change listener.
func (s *ScreenEmulator) OnResize(fn func(cols, rows int)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.resizeSubs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.resizeSubs, id)
	}
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up
// (older lines), negative delta scrolls down. Limit is the viewport height.
func (s *ScreenEmulator) Scroll(delta, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollOffset = clampScroll(s.scrollOffset+delta, len(s.lines), limit)
}

// ResetScroll returns the view to the bottom.
func (s *ScreenEmulator) ResetScroll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollOffset = 0
}

// View returns a snapshot of the visible lines for the given viewport limit.
func (s *ScreenEmulator) View(limit int) ScreenView {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.lines)
	if limit <= 0 || limit > total {
		limit = total
	}

	max := maxScroll(total, limit)
	if s.scrollOffset > max {
		s.scrollOffset = max
	}

	end := total - s.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	lines := make([]string, end-start)
	copy(lines, s.lines[start:end])

	return ScreenView{
		Lines:        lines,
		TotalLines:   total,
		ScrollOffset: s.scrollOffset,
		AtBottom:     s.scrollOffset == 0,
	}
}

// Contents returns every output byte written so far, verbatim.
func (s *ScreenEmulator) Contents() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.raw...)
}

// Close releases listeners. Further writes are still accepted; a closed
// screen simply stops notifying.
func (s *ScreenEmulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.inputSubs = map[int]func([]byte){}
	s.resizeSubs = map[int]func(int, int){}
	return nil
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}

var _ Emulator = (*ScreenEmulator)(nil)
