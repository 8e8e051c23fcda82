package statsync

import "sync"

// OfflineStore persists serialized documents while the service is
// unreachable, keyed by user. Implementations treat the payload as an
// opaque blob.
type OfflineStore interface {
	Save(userID string, data []byte) error
	Load(userID string) ([]byte, bool, error)
	Delete(userID string) error
	Description() string
}

// MemoryStore implements OfflineStore in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (s *MemoryStore) Description() string {
	return "MemoryStore"
}

// Save stores a copy of the blob for a user.
func (s *MemoryStore) Save(userID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[userID] = append([]byte(nil), data...)
	return nil
}

// Load returns the stored blob and whether one exists.
func (s *MemoryStore) Load(userID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Delete removes the stored blob for a user.
func (s *MemoryStore) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, userID)
	return nil
}
