package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/entities"
	"github.com/medvox/duplex/domain/repositories"
	"github.com/medvox/duplex/internal/websocket"
	"github.com/medvox/duplex/usecase"
)

type fakeCapture struct {
	devices []repositories.Device
	openErr error
}

func (f *fakeCapture) CheckSupport() repositories.Support {
	return repositories.Support{
		RecorderSupported:      true,
		MicrophoneSupported:    true,
		SystemCaptureSupported: false,
	}
}

func (f *fakeCapture) ListInputDevices(ctx context.Context) ([]repositories.Device, error) {
	return f.devices, nil
}

func (f *fakeCapture) OpenMicrophone(ctx context.Context, deviceID string) (repositories.CaptureStream, error) {
	return nil, f.openErr
}

func (f *fakeCapture) OpenSystemAudio(ctx context.Context) (repositories.CaptureStream, error) {
	return nil, f.openErr
}

type fakeSessions struct {
	sessions []*entities.CaptureSession
}

func (f *fakeSessions) Create(ctx context.Context, s *entities.CaptureSession) error { return nil }

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*entities.CaptureSession, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, echo.ErrNotFound
}

func (f *fakeSessions) List(ctx context.Context, limit int) ([]*entities.CaptureSession, error) {
	return f.sessions, nil
}

func (f *fakeSessions) Update(ctx context.Context, s *entities.CaptureSession) error { return nil }

type fakeStorage struct{}

func (f *fakeStorage) Save(ctx context.Context, data []byte, name string) (string, error) {
	return "mem://" + name, nil
}

func (f *fakeStorage) Load(ctx context.Context, ref string) ([]byte, error) {
	return []byte("audio"), nil
}

func setupServer(t *testing.T, capture repositories.AudioCapture, sessions repositories.SessionRepository) *echo.Echo {
	t.Helper()
	logger := zap.NewNop()
	hub := websocket.NewHub(logger)
	recorder := usecase.NewRecorderService(capture, &fakeStorage{}, sessions, nil, logger)

	e := echo.New()
	InitRoutes(e, hub, recorder, nil, capture, sessions, logger)
	return e
}

func TestHealthEndpoint(t *testing.T) {
	e := setupServer(t, &fakeCapture{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestSupportEndpoint(t *testing.T) {
	e := setupServer(t, &fakeCapture{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/support", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var support repositories.Support
	if err := json.Unmarshal(rec.Body.Bytes(), &support); err != nil {
		t.Fatalf("Failed to decode support response: %v", err)
	}
	if !support.MicrophoneSupported {
		t.Error("Expected microphone supported")
	}
	if support.SystemCaptureSupported {
		t.Error("Expected system capture unsupported")
	}
}

func TestDevicesEndpoint(t *testing.T) {
	capture := &fakeCapture{devices: []repositories.Device{
		{ID: "0a1b", Label: "Built-in Microphone"},
		{ID: "2c3d", Label: "USB Headset"},
	}}
	e := setupServer(t, capture, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var devices []repositories.Device
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("Failed to decode devices: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("Expected 2 devices, got %d", len(devices))
	}
}

func TestStartRecordingAcquisitionErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"PermissionDenied", repositories.ErrPermissionDenied, http.StatusForbidden},
		{"DeviceNotFound", repositories.ErrDeviceNotFound, http.StatusNotFound},
		{"DeviceBusy", repositories.ErrDeviceBusy, http.StatusConflict},
		{"UnsupportedConstraints", repositories.ErrUnsupportedConstraints, http.StatusUnprocessableEntity},
		{"SystemCaptureUnsupported", repositories.ErrSystemCaptureUnsupported, http.StatusNotImplemented},
		{"Aborted", repositories.ErrAborted, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := setupServer(t, &fakeCapture{openErr: tc.err}, &fakeSessions{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings/start",
				strings.NewReader(`{"microphone_device_id":""}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestStopWithoutActiveRecording(t *testing.T) {
	e := setupServer(t, &fakeCapture{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings/stop", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 when no session is live, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body.Error != "not_recording" {
		t.Errorf("Expected not_recording error code, got %s", body.Error)
	}
}

func TestListRecordings(t *testing.T) {
	sessions := &fakeSessions{sessions: []*entities.CaptureSession{
		entities.NewCaptureSession("mic-001"),
		entities.NewCaptureSession("mic-002"),
	}}
	e := setupServer(t, &fakeCapture{}, sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recordings", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var listed []*entities.CaptureSession
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("Failed to decode recordings: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 recordings, got %d", len(listed))
	}
}

func TestListRecordingsRejectsBadLimit(t *testing.T) {
	e := setupServer(t, &fakeCapture{}, &fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recordings?limit=zero", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric limit, got %d", rec.Code)
	}
}
