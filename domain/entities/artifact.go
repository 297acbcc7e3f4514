package entities

import (
	"fmt"
	"time"
)

// ArtifactRole identifies which stream an artifact came from.
type ArtifactRole string

const (
	ArtifactRoleMicrophone ArtifactRole = "microphone"
	ArtifactRoleSystem     ArtifactRole = "system"
	ArtifactRoleCombined   ArtifactRole = "combined"
)

// Artifact is a finished WAV blob produced by finalizing a session. It is
// immutable once produced; storage returns a durable reference for it.
type Artifact struct {
	Role      ArtifactRole
	SessionID string
	Data      []byte
	CreatedAt time.Time
}

// ArtifactRef is the persisted pointer to a stored artifact.
type ArtifactRef struct {
	Role ArtifactRole `json:"role" bson:"role"`
	Ref  string       `json:"ref" bson:"ref"`
}

// FileName renders the storage name for the artifact. Downstream systems
// parse this to group a session's artifacts, so the token order and
// separators must stay exactly {role}_{timestamp}_{sessionId}.wav.
func (a *Artifact) FileName() string {
	return fmt.Sprintf("%s_%s_%s.wav", a.Role, a.CreatedAt.Format("2006-01-02_15-04-05"), a.SessionID)
}
