package observability

import "sync"

// Metrics provides basic in-memory counters for bot activity.
type Metrics struct {
	mu           sync.Mutex
	commandCount map[string]int64
	errorCount   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		commandCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordCommand increments the counter for a handled command or conversation step.
func (m *Metrics) RecordCommand(command string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCount[command]++
}

// RecordError increments error counters keyed by command and error code.
func (m *Metrics) RecordError(command, code string) {
	if m == nil {
		return
	}
	key := command + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot returns copies of the current counters.
func (m *Metrics) Snapshot() (commands, errors map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	commands = make(map[string]int64, len(m.commandCount))
	for k, v := range m.commandCount {
		commands[k] = v
	}
	errors = make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errors[k] = v
	}
	return commands, errors
}
