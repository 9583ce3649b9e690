// Package fields extracts structured key/value pairs from an entry for the
// details panel: correlation attributes first, then flattened JSON, then SIP
// headers from the payload.
package fields

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/noclense/noclense/pkg/logs/model"
)

type Kind string

const (
	KindCorrelation Kind = "correlation"
	KindJSON        Kind = "json"
	KindSip         Kind = "sip"
)

type Field struct {
	Key   string
	Value string
	Kind  Kind
}

const maxArrayItems = 5
const maxInlineObjectKeys = 8

var sipHeaderRegex = regexp.MustCompile(`(?m)^([A-Za-z][A-Za-z0-9\-]*):\s*(.+)$`)

// correlationKeys are suppressed when they reappear inside the JSON payload,
// since the correlation section already carries them.
var correlationKeys = map[string]bool{
	"messagetype": true, "cncid": true, "messageid": true,
	"reportid": true, "operatorid": true, "extensionid": true,
	"stationid": true, "callid": true, "call-id": true,
	"sipfrom": true, "sipto": true,
}

// Extract builds the ordered field list for one entry. Duplicate keys keep
// their first occurrence.
func Extract(e *model.LogEntry) []Field {
	var out []Field
	seen := make(map[string]bool)

	add := func(key, value string, kind Kind) {
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Field{Key: key, Value: value, Kind: kind})
	}

	addCorrelation := func(key, value string) {
		if value != "" {
			add(key, value, KindCorrelation)
		}
	}
	addCorrelation("messageType", e.MessageType)
	addCorrelation("cncID", e.CncID)
	addCorrelation("messageID", e.MessageID)
	addCorrelation("reportID", e.ReportID)
	addCorrelation("operatorID", e.OperatorID)
	addCorrelation("extensionID", e.ExtensionID)
	addCorrelation("stationId", e.StationID)
	addCorrelation("Call-ID", e.CallID)
	addCorrelation("sipFrom", e.SipFrom)
	addCorrelation("sipTo", e.SipTo)

	if e.Type == model.TypeJSON && e.JSON != nil {
		for _, f := range flatten(e.JSON, "") {
			base := strings.ToLower(strings.FieldsFunc(f.key, func(r rune) bool {
				return r == '.' || r == '['
			})[0])
			if correlationKeys[base] {
				continue
			}
			add(f.key, f.value, KindJSON)
		}
	}

	if e.Payload != "" && (strings.Contains(e.Payload, "SIP/2.0") || sipHeaderRegex.MatchString(e.Payload)) {
		for _, m := range sipHeaderRegex.FindAllStringSubmatch(e.Payload, -1) {
			key := strings.TrimSpace(m[1])
			value := strings.TrimSpace(m[2])
			if key == "" || value == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Field{Key: key, Value: value, Kind: KindSip})
		}
	}

	return out
}

type flatField struct {
	key   string
	value string
}

// flatten expands a JSON object to leaf key/value pairs. Keys are visited in
// sorted order so the output is deterministic. Arrays contribute a ".length"
// entry plus their first few items; deeply keyed nested objects are summarized
// instead of inlined.
func flatten(obj map[string]interface{}, prefix string) []flatField {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []flatField
	for _, k := range keys {
		v := obj[k]
		fullKey := k
		if prefix != "" {
			fullKey = prefix + "." + k
		}
		switch typed := v.(type) {
		case nil:
			out = append(out, flatField{fullKey, "null"})
		case []interface{}:
			out = append(out, flatField{fullKey + ".length", fmt.Sprintf("%d", len(typed))})
			limit := len(typed)
			if limit > maxArrayItems {
				limit = maxArrayItems
			}
			for i := 0; i < limit; i++ {
				itemKey := fmt.Sprintf("%s[%d]", fullKey, i)
				if nested, ok := typed[i].(map[string]interface{}); ok {
					out = append(out, flatten(nested, itemKey)...)
				} else {
					out = append(out, flatField{itemKey, stringify(typed[i])})
				}
			}
			if len(typed) > maxArrayItems {
				out = append(out, flatField{fullKey + ".truncated", fmt.Sprintf("... +%d more", len(typed)-maxArrayItems)})
			}
		case map[string]interface{}:
			nested := flatten(typed, fullKey)
			if len(nested) <= maxInlineObjectKeys {
				out = append(out, nested...)
			} else {
				out = append(out, flatField{fullKey, fmt.Sprintf("[object, %d keys]", len(nested))})
			}
		default:
			out = append(out, flatField{fullKey, stringify(v)})
		}
	}
	return out
}

func stringify(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case string:
		return typed
	case float64, bool:
		return fmt.Sprintf("%v", typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(encoded)
	}
}
