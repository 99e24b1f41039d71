// Package agentproto describes the control channel of the upload Agent, the
// desktop process that moves file bytes to presigned URLs, and provides a
// websocket client for it.
//
// The Agent sends JSON messages discriminated by "type" and accepts JSON
// commands discriminated by "action".
package agentproto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

// DefaultAgentURI is where a locally running Agent listens.
const DefaultAgentURI = "ws://localhost:8765"

// DefaultBackendURL is the orchestrator URL handed to the Agent by default.
const DefaultBackendURL = "http://localhost:8000"

// Message types sent by the Agent.
const (
	TypeConfig   = "config"
	TypeProgress = "progress"
	TypeChunk    = "chunk"
	TypeStatus   = "status"
	TypeError    = "error"
)

// Command actions accepted by the Agent.
const (
	ActionStart  = "start"
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionCancel = "cancel"
)

// StatusCompleted marks the terminal status message of a finished upload.
const StatusCompleted = "completed"

// ChunkFailed is the chunk status reported for a part the Agent will retry.
const ChunkFailed = "failed"

// Message is one decoded Agent message.
type Message interface {
	// Type returns the message discriminator
	Type() string

	// Terminal reports whether no further messages follow for the upload
	Terminal() bool
}

// ConfigMessage reports the transfer settings the Agent uses.
type ConfigMessage struct {
	ChunkSizeMB int `json:"chunkSizeMB"`
	MaxThreads  int `json:"maxThreads"`
}

// ProgressMessage reports transfer progress.
type ProgressMessage struct {
	Percent        float64 `json:"percent"`
	Speed          float64 `json:"speed"` // bytes per second
	CompletedParts int     `json:"completedParts"`
	TotalParts     int     `json:"totalParts"`
	ETA            int     `json:"eta"` // seconds
}

// ChunkMessage reports the outcome of one part transfer.
type ChunkMessage struct {
	PartNumber int    `json:"partNumber"`
	Status     string `json:"status"`
}

// StatusMessage reports an upload state change.
type StatusMessage struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// ErrorMessage reports a failed upload.
type ErrorMessage struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (ConfigMessage) Type() string   { return TypeConfig }
func (ProgressMessage) Type() string { return TypeProgress }
func (ChunkMessage) Type() string    { return TypeChunk }
func (StatusMessage) Type() string   { return TypeStatus }
func (ErrorMessage) Type() string    { return TypeError }

func (ConfigMessage) Terminal() bool   { return false }
func (ProgressMessage) Terminal() bool { return false }
func (ChunkMessage) Terminal() bool    { return false }
func (m StatusMessage) Terminal() bool { return m.Status == StatusCompleted }
func (ErrorMessage) Terminal() bool    { return true }

// Decode parses one Agent message. Unknown types are ErrInvalidInput.
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.NewError("decodeMessage", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("malformed message: %v", err))
	}

	var msg Message
	var err error
	switch envelope.Type {
	case TypeConfig:
		msg, err = decodeAs[ConfigMessage](data)
	case TypeProgress:
		msg, err = decodeAs[ProgressMessage](data)
	case TypeChunk:
		msg, err = decodeAs[ChunkMessage](data)
	case TypeStatus:
		msg, err = decodeAs[StatusMessage](data)
	case TypeError:
		msg, err = decodeAs[ErrorMessage](data)
	default:
		return nil, errors.NewError("decodeMessage", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown message type %q", envelope.Type))
	}
	if err != nil {
		return nil, errors.NewError("decodeMessage", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("malformed %s message: %v", envelope.Type, err))
	}
	return msg, nil
}

func decodeAs[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Command is an instruction sent to the Agent.
type Command struct {
	Action     string `json:"action"`
	FilePath   string `json:"filePath,omitempty"`
	BackendURL string `json:"backendUrl,omitempty"`
	UploadID   string `json:"uploadId,omitempty"`
}

// Start asks the Agent to upload the file at path through the orchestrator at backendURL.
func Start(path, backendURL string) Command {
	if backendURL == "" {
		backendURL = DefaultBackendURL
	}
	return Command{Action: ActionStart, FilePath: path, BackendURL: backendURL}
}

// Pause suspends an upload.
func Pause(uploadID string) Command {
	return Command{Action: ActionPause, UploadID: uploadID}
}

// Resume continues a paused upload.
func Resume(uploadID string) Command {
	return Command{Action: ActionResume, UploadID: uploadID}
}

// Cancel stops an upload.
func Cancel(uploadID string) Command {
	return Command{Action: ActionCancel, UploadID: uploadID}
}

// Validate checks that the fields required by the action are present.
func (c Command) Validate() error {
	switch c.Action {
	case ActionStart:
		if strings.TrimSpace(c.FilePath) == "" {
			return commandError(c.Action, "file path is required")
		}
		if c.BackendURL == "" {
			return commandError(c.Action, "backend url is required")
		}
	case ActionPause, ActionResume, ActionCancel:
		if strings.TrimSpace(c.UploadID) == "" {
			return commandError(c.Action, "upload id is required")
		}
	default:
		return commandError(c.Action, "unknown action")
	}
	return nil
}

func commandError(action, msg string) error {
	return errors.NewError("validateCommand", errors.ErrInvalidInput).
		WithMessage(fmt.Sprintf("%s command: %s", action, msg))
}
