package parser

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/noclense/noclense/pkg/logs/model"
	"go.uber.org/zap"
)

// headerRegex matches the record header line:
// [LEVEL] [M/D/YYYY, time] [component]: message
var headerRegex = regexp.MustCompile(
	`^\[(INFO|DEBUG|ERROR|WARN)\]\s\[(\d{1,2}/\d{1,2}/\d{4}),\s(.*?)\]\s\[(.*?)\]:\s(.*)`,
)

var callIDRegex = regexp.MustCompile(`(?i)Call-ID:\s*(.+)`)
var sipFromRegex = regexp.MustCompile(`(?im)^From:\s*(.+)$`)
var sipToRegex = regexp.MustCompile(`(?im)^To:\s*(.+)$`)

// timestampLayouts covers the time variants seen after the M/D/YYYY date.
var timestampLayouts = []string{
	"1/2/2006 15:04:05.000",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05.000 PM",
	"1/2/2006 3:04:05 PM",
}

const summaryMessageLimit = 140

// filePalette colors multi-file views; assignment is stable per file name.
var filePalette = []string{
	"#3b82f6", "#22c55e", "#eab308", "#a855f7", "#f97316", "#06b6d4",
}

// Parser converts raw file text into ordered, finalized log entries. A single
// Parser hands out process-unique ids, so one instance must be shared across
// all files of a session.
type Parser struct {
	logger  *zap.Logger
	aliases map[string]string
	nextID  atomic.Int64
	now     func() time.Time
}

func NewParser(componentAliases map[string]string, logger *zap.Logger) *Parser {
	return &Parser{
		logger:  logger,
		aliases: componentAliases,
		now:     time.Now,
	}
}

// Parse splits the text into lines and accumulates entries: a header match
// finalizes the open entry and opens a new one; any other line is a payload
// continuation. Lines before the first header are discarded. Malformed
// timestamps and JSON never abort the parse.
func (p *Parser) Parse(text string, fileName string) []model.LogEntry {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var parsed []model.LogEntry
	var current *model.LogEntry
	fileColor := colorFor(fileName)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		match := headerRegex.FindStringSubmatch(line)
		if match == nil {
			if current != nil {
				if current.Payload == "" {
					current.Payload = line
				} else {
					current.Payload += "\n" + line
				}
			}
			continue
		}

		if current != nil {
			p.finalize(current)
			parsed = append(parsed, *current)
		}

		level, date, clock, component, message := match[1], match[2], match[3], match[4], match[5]
		rawTimestamp := date + " " + clock
		ts, guessed := p.parseTimestamp(rawTimestamp)

		current = &model.LogEntry{
			ID:               p.nextID.Add(1),
			Timestamp:        ts,
			TimestampGuessed: guessed,
			RawTimestamp:     rawTimestamp,
			Level:            model.Level(level),
			Component:        component,
			Message:          strings.TrimSpace(message),
			Type:             model.TypeLog,
			FileName:         fileName,
			FileColor:        fileColor,
		}
	}

	if current != nil {
		p.finalize(current)
		parsed = append(parsed, *current)
	}

	return parsed
}

func (p *Parser) parseTimestamp(raw string) (int64, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t.UnixMilli(), false
		}
	}
	p.logger.Debug("Unparseable timestamp, falling back to wall clock",
		zap.String("raw_timestamp", raw),
	)
	return p.now().UnixMilli(), true
}

// finalize runs JSON detection, SIP detection and correlation-attribute
// population, then freezes the entry's search shadows.
func (p *Parser) finalize(e *model.LogEntry) {
	p.detectJSON(e)
	p.detectSip(e)

	if alias, ok := p.aliases[e.Component]; ok {
		e.DisplayComponent = alias
	}

	e.PrecomputeSearchFields()
}

func (p *Parser) detectJSON(e *model.LogEntry) {
	trimmed := strings.TrimSpace(e.Payload)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		// Not valid JSON, leave the payload as plain text.
		return
	}
	e.Type = model.TypeJSON
	e.JSON = parsed
	p.populateCorrelation(e, parsed)

	if summary, ok := jsonString(parsed, "message", "msg"); ok {
		e.DisplayMessage = summary
		if len(summary) > summaryMessageLimit {
			summary = summary[:summaryMessageLimit] + "…"
		}
		e.SummaryMessage = summary
	}
}

func (p *Parser) populateCorrelation(e *model.LogEntry, parsed map[string]interface{}) {
	if v, ok := jsonString(parsed, "messageType"); ok {
		e.MessageType = v
	}
	if v, ok := jsonString(parsed, "cncID", "cncId"); ok {
		e.CncID = v
	}
	if v, ok := jsonString(parsed, "messageID", "messageId"); ok {
		e.MessageID = v
	}
	if v, ok := jsonString(parsed, "reportID", "reportId"); ok {
		e.ReportID = v
	}
	if v, ok := jsonString(parsed, "operatorID", "operatorId"); ok {
		e.OperatorID = v
	}
	if v, ok := jsonString(parsed, "extensionID", "extensionId"); ok {
		e.ExtensionID = v
	}
	if v, ok := jsonString(parsed, "stationId", "stationID"); ok {
		e.StationID = v
	}
	if v, ok := jsonString(parsed, "callId", "callID"); ok && e.CallID == "" {
		e.CallID = v
	}
}

func (p *Parser) detectSip(e *model.LogEntry) {
	loweredPayload := strings.ToLower(e.Payload)
	loweredMessage := strings.ToLower(e.Message)
	if !strings.Contains(loweredPayload, "sip/2.0") && !strings.Contains(loweredMessage, "sip") {
		return
	}
	e.IsSip = true

	// Method detection scans only the first payload line against the fixed
	// keyword list, first match wins. Numeric-only response lines are not
	// detected; that asymmetry is intentional.
	firstLine, _, _ := strings.Cut(e.Payload, "\n")
	for _, method := range model.SipMethods {
		if strings.Contains(firstLine, method) {
			e.SipMethod = strings.TrimSpace(method)
			break
		}
	}

	if m := callIDRegex.FindStringSubmatch(e.Payload); m != nil {
		e.CallID = strings.TrimSpace(m[1])
	}
	if m := sipFromRegex.FindStringSubmatch(e.Payload); m != nil {
		e.SipFrom = strings.TrimSpace(m[1])
	}
	if m := sipToRegex.FindStringSubmatch(e.Payload); m != nil {
		e.SipTo = strings.TrimSpace(m[1])
	}
}

func jsonString(parsed map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := parsed[key]
		if !ok || v == nil {
			continue
		}
		switch typed := v.(type) {
		case string:
			if typed != "" {
				return typed, true
			}
		case float64, bool:
			return fmt.Sprintf("%v", typed), true
		}
	}
	return "", false
}

func colorFor(fileName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fileName))
	return filePalette[int(h.Sum32())%len(filePalette)]
}
