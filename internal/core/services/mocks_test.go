package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockClient struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func (m *mockClient) Send(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.frames = append(m.frames, buf)
	return nil
}

func (m *mockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// contents returns the payloads of every content frame received.
func (m *mockClient) contents() []string {
	var out []string
	for _, f := range m.snapshot() {
		var ev domain.ContentEvent
		if json.Unmarshal(f, &ev) == nil && ev.Type == domain.TypeContent {
			out = append(out, ev.Payload)
		}
	}
	return out
}

// memberCounts returns the counts of every members frame received.
func (m *mockClient) memberCounts() []int {
	var out []int
	for _, f := range m.snapshot() {
		var ev domain.MembersEvent
		if json.Unmarshal(f, &ev) == nil && ev.Type == domain.TypeMembers {
			out = append(out, ev.Count)
		}
	}
	return out
}

func (m *mockClient) snapshot() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

type persistCall struct {
	roomID  string
	content string
}

type fakeStore struct {
	mu           sync.Mutex
	docs         map[string]*domain.Document
	fetchErr     error
	createErr    error
	failNext     int // number of persist calls to fail
	createCalls  []string
	persistCalls []persistCall
	persisted    chan persistCall

	// optional fetch gating for slow-store scenarios
	fetchStarted chan struct{}
	fetchGate    chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:      make(map[string]*domain.Document),
		persisted: make(chan persistCall, 16),
	}
}

func (s *fakeStore) FetchDocument(_ context.Context, roomID string) (*domain.Document, error) {
	if s.fetchStarted != nil {
		s.fetchStarted <- struct{}{}
	}
	if s.fetchGate != nil {
		<-s.fetchGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	doc, ok := s.docs[roomID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *fakeStore) CreateDocument(_ context.Context, roomID string, initialContent string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls = append(s.createCalls, roomID)
	if s.createErr != nil {
		return nil, s.createErr
	}
	doc := &domain.Document{
		ID:        roomID,
		Content:   initialContent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.docs[roomID] = doc
	cp := *doc
	return &cp, nil
}

func (s *fakeStore) PersistDocument(_ context.Context, roomID string, content string) error {
	s.mu.Lock()
	call := persistCall{roomID: roomID, content: content}
	s.persistCalls = append(s.persistCalls, call)
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return io.ErrUnexpectedEOF
	}
	if doc, ok := s.docs[roomID]; ok {
		doc.Content = content
		doc.UpdatedAt = time.Now()
	}
	s.mu.Unlock()
	s.persisted <- call
	return nil
}

func (s *fakeStore) persistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persistCalls)
}

func (s *fakeStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.createCalls)
}
