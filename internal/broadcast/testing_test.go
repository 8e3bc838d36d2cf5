package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"broadcast-service/internal/models"
)

var errConnClosed = errors.New("connection closed")

// mockConn implements the Conn interface for testing
type mockConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool

	delivered chan []byte
	readBlock chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		delivered: make(chan []byte, 64),
		readBlock: make(chan struct{}),
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errConnClosed
	}
	m.frames = append(m.frames, data)
	select {
	case m.delivered <- data:
	default:
	}
	return nil
}

func (m *mockConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	<-m.readBlock
	return 0, nil, errConnClosed
}

func (m *mockConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.readBlock)
	}
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// nextFrame waits for the write pump to deliver one data frame.
func (m *mockConn) nextFrame(t *testing.T) ServerFrame {
	t.Helper()
	select {
	case data := <-m.delivered:
		var frame ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("invalid frame %q: %v", data, err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
		return ServerFrame{}
	}
}

func (m *mockConn) expectNoFrame(t *testing.T) {
	t.Helper()
	select {
	case data := <-m.delivered:
		t.Fatalf("unexpected frame delivered: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func testUser(id uint) *models.User {
	return &models.User{
		ID:       id,
		Email:    "user@example.com",
		FullName: "Test User",
		IsActive: true,
	}
}

// newTestClient registers a client backed by a mockConn and starts its
// write pump.
func newTestClient(r *Registry, id string, user *models.User) (*Client, *mockConn) {
	conn := newMockConn()
	client := NewClient(id, user, conn)
	r.Register(client)
	go client.WritePump()
	return client, conn
}
