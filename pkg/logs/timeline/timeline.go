// Package timeline downsamples an ordered entry sequence into the marker,
// file-span and call-lane structures behind the scrubber visualization. It
// consumes the filter engine's output and owns no filtering logic itself.
package timeline

import (
	"sort"

	"github.com/noclense/noclense/pkg/logs/model"
)

// Category classifies an entry for the scrubber's event toggles.
type Category string

const (
	CategoryRequest     Category = "request"
	CategorySuccess     Category = "success"
	CategoryProvisional Category = "provisional"
	CategoryError       Category = "error"
	CategoryOptions     Category = "options"
	CategoryKeepAlive   Category = "keepalive"
)

// Toggles selects which event categories produce markers.
type Toggles struct {
	Requests    bool
	Success     bool
	Provisional bool
	Errors      bool
	Options     bool
	KeepAlive   bool
}

// AllToggles enables every category.
func AllToggles() Toggles {
	return Toggles{
		Requests:    true,
		Success:     true,
		Provisional: true,
		Errors:      true,
		Options:     true,
		KeepAlive:   true,
	}
}

// Marker is one scrubber event.
type Marker struct {
	EntryID   int64
	Timestamp int64
	Category  Category
}

// FileSegment is a contiguous run of entries from the same source file.
type FileSegment struct {
	FileName string
	StartMs  int64
	EndMs    int64
	Entries  int
}

// SessionSpan is the time extent of one call session, packed into a lane.
type SessionSpan struct {
	CallID  string
	StartMs int64
	EndMs   int64
	Entries int
	Lane    int
}

// Timeline is the aggregated scrubber model.
type Timeline struct {
	MinMs    int64
	MaxMs    int64
	Markers  []Marker
	Segments []FileSegment
	Sessions []SessionSpan

	laneByCallID map[string]int
}

// LaneOf is the O(1) session-to-lane lookup used for marker positioning.
func (t *Timeline) LaneOf(callID string) (int, bool) {
	lane, ok := t.laneByCallID[callID]
	return lane, ok
}

// LaneBufferMs is the default minimum idle gap before a lane may be reused.
const LaneBufferMs = 2000

// Build aggregates an ordered (timestamp-sorted) entry sequence. maxMarkers
// caps the marker list; larger scopes are evenly subsampled to preserve
// rendering performance. laneBufferMs tunes lane reuse, 0 means the default.
func Build(entries []model.LogEntry, toggles Toggles, maxMarkers int, laneBufferMs int64) *Timeline {
	t := &Timeline{laneByCallID: make(map[string]int)}
	if len(entries) == 0 {
		return t
	}
	if laneBufferMs <= 0 {
		laneBufferMs = LaneBufferMs
	}
	t.MinMs = entries[0].Timestamp
	t.MaxMs = entries[len(entries)-1].Timestamp

	t.Markers = buildMarkers(entries, toggles, maxMarkers)
	t.Segments = buildSegments(entries)
	t.Sessions = buildSessions(entries, laneBufferMs)
	for _, s := range t.Sessions {
		t.laneByCallID[s.CallID] = s.Lane
	}
	return t
}

func buildMarkers(entries []model.LogEntry, toggles Toggles, maxMarkers int) []Marker {
	var markers []Marker
	for i := range entries {
		e := &entries[i]
		cat, ok := Categorize(e)
		if !ok || !enabled(cat, toggles) {
			continue
		}
		markers = append(markers, Marker{
			EntryID:   e.ID,
			Timestamp: e.Timestamp,
			Category:  cat,
		})
	}
	if maxMarkers > 0 && len(markers) > maxMarkers {
		markers = subsample(markers, maxMarkers)
	}
	return markers
}

// subsample picks count markers spread evenly across the full list.
func subsample(markers []Marker, count int) []Marker {
	out := make([]Marker, count)
	for i := 0; i < count; i++ {
		out[i] = markers[i*len(markers)/count]
	}
	return out
}

// Categorize maps an entry to its scrubber category. ERROR-level entries and
// 4xx/5xx responses count as errors; REGISTER refreshes count as keep-alive
// traffic, OPTIONS pings have their own toggle.
func Categorize(e *model.LogEntry) (Category, bool) {
	if e.Level == model.ErrorLevel {
		return CategoryError, true
	}
	if !e.IsSip || e.SipMethod == "" {
		return "", false
	}
	if model.IsSipResponse(e.SipMethod) {
		switch e.SipMethod[0] {
		case '1':
			return CategoryProvisional, true
		case '2':
			return CategorySuccess, true
		case '4', '5':
			return CategoryError, true
		default:
			return "", false
		}
	}
	switch e.SipMethod {
	case "OPTIONS":
		return CategoryOptions, true
	case "REGISTER":
		return CategoryKeepAlive, true
	case "INVITE", "BYE", "CANCEL", "ACK":
		return CategoryRequest, true
	default:
		return "", false
	}
}

func enabled(cat Category, toggles Toggles) bool {
	switch cat {
	case CategoryRequest:
		return toggles.Requests
	case CategorySuccess:
		return toggles.Success
	case CategoryProvisional:
		return toggles.Provisional
	case CategoryError:
		return toggles.Errors
	case CategoryOptions:
		return toggles.Options
	case CategoryKeepAlive:
		return toggles.KeepAlive
	default:
		return false
	}
}

// buildSegments detects gaps by consecutive file-name change.
func buildSegments(entries []model.LogEntry) []FileSegment {
	var segments []FileSegment
	var current *FileSegment
	for i := range entries {
		e := &entries[i]
		if current == nil || current.FileName != e.FileName {
			if current != nil {
				segments = append(segments, *current)
			}
			current = &FileSegment{
				FileName: e.FileName,
				StartMs:  e.Timestamp,
				EndMs:    e.Timestamp,
				Entries:  1,
			}
			continue
		}
		current.EndMs = e.Timestamp
		current.Entries++
	}
	if current != nil {
		segments = append(segments, *current)
	}
	return segments
}

// buildSessions groups entries by call id and packs the resulting spans into
// lanes greedily: sessions in start order, each placed into the first lane
// whose last end time is more than the lane buffer before the session's start.
func buildSessions(entries []model.LogEntry, laneBufferMs int64) []SessionSpan {
	spansByCall := make(map[string]*SessionSpan)
	var order []string
	for i := range entries {
		e := &entries[i]
		if e.CallID == "" {
			continue
		}
		span, ok := spansByCall[e.CallID]
		if !ok {
			spansByCall[e.CallID] = &SessionSpan{
				CallID:  e.CallID,
				StartMs: e.Timestamp,
				EndMs:   e.Timestamp,
				Entries: 1,
			}
			order = append(order, e.CallID)
			continue
		}
		if e.Timestamp < span.StartMs {
			span.StartMs = e.Timestamp
		}
		if e.Timestamp > span.EndMs {
			span.EndMs = e.Timestamp
		}
		span.Entries++
	}

	sessions := make([]SessionSpan, 0, len(order))
	for _, callID := range order {
		sessions = append(sessions, *spansByCall[callID])
	}
	sortSessionsByStart(sessions)

	var laneEnds []int64
	for i := range sessions {
		placed := false
		for lane, end := range laneEnds {
			if sessions[i].StartMs > end+laneBufferMs {
				sessions[i].Lane = lane
				laneEnds[lane] = sessions[i].EndMs
				placed = true
				break
			}
		}
		if !placed {
			sessions[i].Lane = len(laneEnds)
			laneEnds = append(laneEnds, sessions[i].EndMs)
		}
	}
	return sessions
}

// sortSessionsByStart orders by start time, breaking ties by call id so lane
// assignment is deterministic.
func sortSessionsByStart(sessions []SessionSpan) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartMs != sessions[j].StartMs {
			return sessions[i].StartMs < sessions[j].StartMs
		}
		return sessions[i].CallID < sessions[j].CallID
	})
}
