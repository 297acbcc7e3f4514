package api

// StartRecordingRequest selects the microphone for a new session. An empty
// device ID means the system default microphone.
type StartRecordingRequest struct {
	MicrophoneDeviceID string `json:"microphone_device_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
