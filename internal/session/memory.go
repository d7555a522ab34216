package session

import "sync"

// Memory is an unencrypted slot that lives in process memory. It backs
// ephemeral sessions.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns an empty memory slot.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *Memory) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte{}, data...)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
