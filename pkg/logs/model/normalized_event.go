package model

import "strconv"

// NormalizedEvent is the shape consumed by the case/export boundary. Redaction
// and report formatting happen on the other side of that boundary.
type NormalizedEvent struct {
	ID        string                 `json:"id"`
	Timestamp int64                  `json:"timestamp"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Level     string                 `json:"level,omitempty"`
	CallID    string                 `json:"callId,omitempty"`
	ReportID  string                 `json:"reportId,omitempty"`
	SipMethod string                 `json:"sipMethod,omitempty"`
	SipStatus string                 `json:"sipStatus,omitempty"`
}

// ToNormalizedEvent converts an entry for export consumers on demand.
func (e *LogEntry) ToNormalizedEvent() NormalizedEvent {
	ev := NormalizedEvent{
		ID:        strconv.FormatInt(e.ID, 10),
		Timestamp: e.Timestamp,
		Message:   e.Message,
		Source:    e.FileName,
		Level:     string(e.Level),
		CallID:    e.CallID,
		ReportID:  e.ReportID,
	}
	if e.Type == TypeJSON && e.JSON != nil {
		ev.Payload = e.JSON
	} else if e.Payload != "" {
		ev.Payload = map[string]interface{}{"raw": e.Payload}
	}
	if e.SipMethod != "" {
		if IsSipResponse(e.SipMethod) {
			ev.SipStatus = NormalizeSipMethod(e.SipMethod)
		} else {
			ev.SipMethod = e.SipMethod
		}
	}
	return ev
}
