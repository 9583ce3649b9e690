package model

import "strings"

type Level string

const (
	InfoLevel  Level = "INFO"
	DebugLevel Level = "DEBUG"
	ErrorLevel Level = "ERROR"
	WarnLevel  Level = "WARN"
)

// Rank orders levels by severity for level-based sorting.
func (l Level) Rank() int {
	switch l {
	case ErrorLevel:
		return 3
	case WarnLevel:
		return 2
	case InfoLevel:
		return 1
	case DebugLevel:
		return 0
	default:
		return 0
	}
}

type EntryType string

const (
	TypeLog  EntryType = "LOG"
	TypeJSON EntryType = "JSON"
)

// LogEntry is the canonical unit produced by the record parser. Once an entry
// has been finalized its id, timestamp, payload and type never change; UI-facing
// annotations (favorites, selection) are tracked externally keyed by ID.
type LogEntry struct {
	ID           int64  `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	RawTimestamp string `json:"rawTimestamp"`
	// TimestampGuessed marks entries whose raw timestamp failed to parse and
	// were assigned wall-clock time instead. Such entries may sort out of
	// place relative to their file order.
	TimestampGuessed bool `json:"timestampGuessed,omitempty"`

	Level            Level  `json:"level"`
	Component        string `json:"component"`
	DisplayComponent string `json:"displayComponent,omitempty"`
	Message          string `json:"message"`
	DisplayMessage   string `json:"displayMessage,omitempty"`
	SummaryMessage   string `json:"summaryMessage,omitempty"`
	Payload          string `json:"payload,omitempty"`

	Type EntryType              `json:"type"`
	JSON map[string]interface{} `json:"json,omitempty"`

	IsSip     bool   `json:"isSip"`
	SipMethod string `json:"sipMethod,omitempty"`
	SipFrom   string `json:"sipFrom,omitempty"`
	SipTo     string `json:"sipTo,omitempty"`

	CallID      string `json:"callId,omitempty"`
	ReportID    string `json:"reportId,omitempty"`
	OperatorID  string `json:"operatorId,omitempty"`
	ExtensionID string `json:"extensionId,omitempty"`
	StationID   string `json:"stationId,omitempty"`
	CncID       string `json:"cncId,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	MessageType string `json:"messageType,omitempty"`

	FileName  string `json:"fileName,omitempty"`
	FileColor string `json:"fileColor,omitempty"`

	// Lowercase shadows for high-frequency substring search, derived once by
	// PrecomputeSearchFields and never mutated afterwards.
	searchMessage   string
	searchPayload   string
	searchComponent string
	searchCallID    string
}

// PrecomputeSearchFields derives the lowercase search shadows. Must be called
// after the entry's message, payload, component and call id are final, and
// again after an entry is rehydrated from a persisted document.
func (e *LogEntry) PrecomputeSearchFields() {
	e.searchMessage = strings.ToLower(e.Message)
	e.searchPayload = strings.ToLower(e.Payload)
	e.searchComponent = strings.ToLower(e.Component)
	e.searchCallID = strings.ToLower(e.CallID)
}

// MatchesFreeText reports whether any of message, payload, component or call id
// contains the already-lowercased query as a substring.
func (e *LogEntry) MatchesFreeText(loweredQuery string) bool {
	if loweredQuery == "" {
		return true
	}
	return strings.Contains(e.searchMessage, loweredQuery) ||
		strings.Contains(e.searchPayload, loweredQuery) ||
		strings.Contains(e.searchComponent, loweredQuery) ||
		strings.Contains(e.searchCallID, loweredQuery)
}

// GroupComponent is the component used for grouping and similarity collapsing.
func (e *LogEntry) GroupComponent() string {
	if e.DisplayComponent != "" {
		return e.DisplayComponent
	}
	return e.Component
}

// PreferredDisplayMessage is the message variant shown in collapsed and
// summarized views. The original message text is never overwritten.
func (e *LogEntry) PreferredDisplayMessage() string {
	if e.SummaryMessage != "" {
		return e.SummaryMessage
	}
	if e.DisplayMessage != "" {
		return e.DisplayMessage
	}
	return e.Message
}
