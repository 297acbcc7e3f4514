package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/entities"
)

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(zap.NewNop())

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil {
		t.Error("Hub register channel not initialized")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel not initialized")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel not initialized")
	}
}

func TestHub_BroadcastsEventsToConnectedClient(t *testing.T) {
	logger := zap.NewNop()
	hub := NewHub(logger)
	go hub.Run()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the register roundtrip a moment to land before broadcasting.
	time.Sleep(50 * time.Millisecond)

	session := entities.NewCaptureSession("mic-001")
	hub.RecordingStarted(session)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var event RecordingStartedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Type != EventTypeRecordingStarted {
		t.Errorf("Expected recording_started event, got %s", event.Type)
	}
	if event.SessionID != session.ID {
		t.Errorf("Expected session ID %s, got %s", session.ID, event.SessionID)
	}
}

func TestHub_MultipleClientsReceiveSameEvent(t *testing.T) {
	logger := zap.NewNop()
	hub := NewHub(logger)
	go hub.Run()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conns := make([]*websocket.Conn, 0, 3)
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to dial websocket %d: %v", i, err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	time.Sleep(50 * time.Millisecond)

	session := entities.NewCaptureSession("")
	session.Transcript = "text"
	hub.ProcessingCompleted(session)

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Client %d failed to read event: %v", i, err)
		}
		var event ProcessingCompletedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			t.Fatalf("Client %d failed to decode event: %v", i, err)
		}
		if event.SessionID != session.ID {
			t.Errorf("Client %d got session ID %s, want %s", i, event.SessionID, session.ID)
		}
	}
}
