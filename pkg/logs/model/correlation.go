package model

// Dimension names one correlation axis used to cross-link related entries.
type Dimension string

const (
	DimensionCallID      Dimension = "callId"
	DimensionReportID    Dimension = "reportId"
	DimensionOperatorID  Dimension = "operatorId"
	DimensionExtensionID Dimension = "extensionId"
	DimensionStationID   Dimension = "stationId"
	DimensionCncID       Dimension = "cncId"
	DimensionMessageID   Dimension = "messageId"
	DimensionMessageType Dimension = "messageType"
	DimensionFileName    Dimension = "fileName"
)

// Dimensions lists every correlation dimension in indexing order.
var Dimensions = []Dimension{
	DimensionCallID,
	DimensionReportID,
	DimensionOperatorID,
	DimensionExtensionID,
	DimensionStationID,
	DimensionCncID,
	DimensionMessageID,
	DimensionMessageType,
	DimensionFileName,
}

// ValueOf extracts the entry's value on this dimension, empty when unset.
func (d Dimension) ValueOf(e *LogEntry) string {
	switch d {
	case DimensionCallID:
		return e.CallID
	case DimensionReportID:
		return e.ReportID
	case DimensionOperatorID:
		return e.OperatorID
	case DimensionExtensionID:
		return e.ExtensionID
	case DimensionStationID:
		return e.StationID
	case DimensionCncID:
		return e.CncID
	case DimensionMessageID:
		return e.MessageID
	case DimensionMessageType:
		return e.MessageType
	case DimensionFileName:
		return e.FileName
	default:
		return ""
	}
}

// CorrelationItem is one active filter facet: a (dimension, value) pair with an
// include/exclude sense. Facets live only for the session and are consumed each
// time the filtered view is recomputed.
type CorrelationItem struct {
	Type     Dimension `json:"type"`
	Value    string    `json:"value"`
	Excluded bool      `json:"excluded,omitempty"`
}
