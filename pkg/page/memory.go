package page

import (
	"slices"
	"sort"
	"sync"
)

// EventKind identifies the mutation reported to observers.
type EventKind string

const (
	EventInvalid      EventKind = "invalid"
	EventFieldMessage EventKind = "field-message"
	EventHidden       EventKind = "hidden"
	EventFocus        EventKind = "focus"
	EventProgress     EventKind = "progress"
	EventFormMessage  EventKind = "form-message"
	EventLiveText     EventKind = "live-text"
)

// Event describes a single mutation of the tree.
type Event struct {
	Kind    EventKind
	Target  string
	Text    string
	Flag    bool
	Current int
	Total   int
}

// Memory is an in-memory Page. It is safe for concurrent use because timers
// (debounce, announcement expiry) write to it from their own goroutines.
type Memory struct {
	mu          sync.RWMutex
	invalid     map[string]bool
	messages    map[string]string
	hidden      map[string]bool
	live        map[Politeness]string
	focus       string
	current     int
	total       int
	formMessage string
	observers   []func(Event)
}

// Ensure Memory satisfies Page.
var _ Page = (*Memory)(nil)

// NewMemory returns an empty tree.
func NewMemory() *Memory {
	return &Memory{
		invalid:  make(map[string]bool),
		messages: make(map[string]string),
		hidden:   make(map[string]bool),
		live:     make(map[Politeness]string),
	}
}

// Observe registers a callback invoked after every mutation. Callbacks run
// outside the lock and may read the tree.
func (m *Memory) Observe(fn func(Event)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *Memory) SetInvalid(fieldID string, invalid bool) {
	m.mu.Lock()
	if invalid {
		m.invalid[fieldID] = true
	} else {
		delete(m.invalid, fieldID)
	}
	m.mu.Unlock()
	m.emit(Event{Kind: EventInvalid, Target: fieldID, Flag: invalid})
}

func (m *Memory) SetFieldMessage(fieldID, message string) {
	m.mu.Lock()
	if message == "" {
		delete(m.messages, fieldID)
	} else {
		m.messages[fieldID] = message
	}
	m.mu.Unlock()
	m.emit(Event{Kind: EventFieldMessage, Target: fieldID, Text: message})
}

func (m *Memory) SetHidden(sectionID string, hidden bool) {
	m.mu.Lock()
	m.hidden[sectionID] = hidden
	m.mu.Unlock()
	m.emit(Event{Kind: EventHidden, Target: sectionID, Flag: hidden})
}

func (m *Memory) Focus(elementID string) {
	m.mu.Lock()
	m.focus = elementID
	m.mu.Unlock()
	m.emit(Event{Kind: EventFocus, Target: elementID})
}

func (m *Memory) SetProgress(current, total int) {
	m.mu.Lock()
	m.current, m.total = current, total
	m.mu.Unlock()
	m.emit(Event{Kind: EventProgress, Current: current, Total: total})
}

func (m *Memory) SetFormMessage(message string) {
	m.mu.Lock()
	m.formMessage = message
	m.mu.Unlock()
	m.emit(Event{Kind: EventFormMessage, Text: message})
}

func (m *Memory) SetLiveText(channel Politeness, text string) {
	m.mu.Lock()
	m.live[channel] = text
	m.mu.Unlock()
	m.emit(Event{Kind: EventLiveText, Target: string(channel), Text: text})
}

// Invalid reports the invalid flag of a field.
func (m *Memory) Invalid(fieldID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invalid[fieldID]
}

// InvalidFields lists flagged fields in sorted order.
func (m *Memory) InvalidFields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.invalid))
	for id := range m.invalid {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FieldMessage returns the message region text of a field.
func (m *Memory) FieldMessage(fieldID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages[fieldID]
}

// Hidden reports whether a section is hidden.
func (m *Memory) Hidden(sectionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hidden[sectionID]
}

// Focused returns the element holding focus.
func (m *Memory) Focused() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.focus
}

// Progress returns the step indicator values.
func (m *Memory) Progress() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.total
}

// FormMessage returns the form-level message.
func (m *Memory) FormMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.formMessage
}

// LiveText returns the current text of a live region.
func (m *Memory) LiveText(channel Politeness) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live[channel]
}

func (m *Memory) emit(event Event) {
	m.mu.RLock()
	observers := slices.Clone(m.observers)
	m.mu.RUnlock()
	for _, fn := range observers {
		fn(event)
	}
}
