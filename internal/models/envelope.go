package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is implemented by every outbound push payload. Kind returns the
// wire-level "type" discriminator, so adding a new push kind means adding
// a new payload type here rather than scattering string literals through
// call sites.
type Payload interface {
	Kind() string
}

// Envelope wraps a Payload with its type tag and send timestamp. Envelopes
// are constructed fresh per dispatch and never mutated after send.
type Envelope struct {
	Type      string
	Timestamp time.Time
	Payload   Payload
}

// NewEnvelope stamps a payload with its kind and the current time.
func NewEnvelope(p Payload) Envelope {
	return Envelope{
		Type:      p.Kind(),
		Timestamp: time.Now().UTC(),
		Payload:   p,
	}
}

// MarshalJSON flattens the payload fields next to "type" and "timestamp",
// the shape clients expect: {"type":..., "timestamp":ISO8601, ...payload}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to flatten %s payload: %w", e.Type, err)
		}
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp.Format(time.RFC3339)
	return json.Marshal(out)
}

// ConnectedPayload is sent once to a connection right after a successful
// handshake. Never broadcast.
type ConnectedPayload struct {
	Message string `json:"message"`
}

func (ConnectedPayload) Kind() string { return "connected" }

// PongPayload answers an inbound ping frame.
type PongPayload struct{}

func (PongPayload) Kind() string { return "pong" }

// NotificationPayload carries a generic notification forwarded from the
// caller.
type NotificationPayload struct {
	Subject string                 `json:"subject"`
	Body    string                 `json:"body,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (NotificationPayload) Kind() string { return "notification" }

// TaskGeneratedPayload announces a single auto-generated task to its
// assignee.
type TaskGeneratedPayload struct {
	TaskID      string  `json:"taskId"`
	Title       string  `json:"title"`
	Severity    string  `json:"severity"`
	ItemCode    string  `json:"itemCode"`
	Variance    float64 `json:"variance"`
	VariancePct float64 `json:"variancePercentage"`
	DueDate     string  `json:"dueDate"`
}

func (TaskGeneratedPayload) Kind() string { return "mqt_task_generated" }

// BulkTaskSummary is one line of a bulk-generation announcement.
type BulkTaskSummary struct {
	TaskID      string  `json:"taskId"`
	ItemCode    string  `json:"itemCode"`
	Severity    string  `json:"severity"`
	VariancePct float64 `json:"variancePercentage"`
}

// BulkTasksGeneratedPayload replaces the per-task pushes when a batch run
// generates many tasks at once.
type BulkTasksGeneratedPayload struct {
	Count int               `json:"count"`
	Tasks []BulkTaskSummary `json:"tasks"`
}

func (BulkTasksGeneratedPayload) Kind() string { return "mqt_bulk_tasks_generated" }

// DiscrepancyAlertPayload notifies the project team of a quantity
// discrepancy the moment it is detected.
type DiscrepancyAlertPayload struct {
	ItemCode    string  `json:"itemCode"`
	Severity    string  `json:"severity"`
	Variance    float64 `json:"variance"`
	VariancePct float64 `json:"variancePercentage"`
	ProjectID   int64   `json:"projectId,omitempty"`
}

func (DiscrepancyAlertPayload) Kind() string { return "mqt_discrepancy_alert" }

// AutomationConfigUpdatedPayload tells the project team an administrator
// changed the automation settings.
type AutomationConfigUpdatedPayload struct {
	ProjectID int64                  `json:"projectId"`
	Changes   map[string]interface{} `json:"changes"`
}

func (AutomationConfigUpdatedPayload) Kind() string { return "mqt_automation_config_updated" }

// ProcessingStatusPayload is broadcast around a batch run so connected
// operators can follow progress without polling.
type ProcessingStatusPayload struct {
	ProjectID int64  `json:"projectId"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
}

func (ProcessingStatusPayload) Kind() string { return "mqt_processing_status" }

// Processing statuses broadcast by batch runs.
const (
	ProcessingStarted    = "started"
	ProcessingInProgress = "in_progress"
	ProcessingCompleted  = "completed"
	ProcessingFailed     = "failed"
)
