// Package events contains the event contracts pushed to dashboard
// clients over WebSocket.
package events

import (
	"time"

	"iqccli/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Report lifecycle messages
	MessageTypeReportCompleted MessageType = "report:completed"
	MessageTypeReportDeleted   MessageType = "report:deleted"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewReportCompleted builds the broadcast message for a finished report.
func NewReportCompleted(summary domain.ReportSummary) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeReportCompleted,
			Timestamp: time.Now().UTC(),
		},
		Data: summary,
	}
}

// NewReportDeleted builds the broadcast message for a removed report.
func NewReportDeleted(reportID string) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeReportDeleted,
			Timestamp: time.Now().UTC(),
		},
		Data: map[string]string{"report_id": reportID},
	}
}

// SystemStatus is the payload of a system:status message.
type SystemStatus struct {
	Status      string `json:"status"`
	Connections int    `json:"active_connections"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
}
