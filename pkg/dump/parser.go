// Package dump reads route dump sources and turns their lines into events.
package dump

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

// rawRecord is one JSON dump line. Pointer and RawMessage fields let the
// parser tell a missing field from a zero value.
type rawRecord struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Prefix    *string         `json:"prefix"`
	Entries   *[]rawEntry     `json:"entries"`
	PeerIP    string          `json:"peer_ip"`
	PeerAS    json.RawMessage `json:"peer_as"`
	ASPath    json.RawMessage `json:"as_path"`
	Announce  []string        `json:"announce"`
	Withdraw  []string        `json:"withdraw"`
}

type rawEntry struct {
	PeerIP              string          `json:"peer_ip"`
	PeerAS              json.RawMessage `json:"peer_as"`
	OriginatedTimestamp json.RawMessage `json:"originated_timestamp"`
	ASPath              json.RawMessage `json:"as_path"`
}

// ParseLine parses one dump line into a record.
// Returns false for anything that is not a complete baseline view or update.
func ParseLine(line []byte) (models.Record, bool) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, false
	}

	ts, ok := parseNumber(raw.Timestamp)
	if !ok {
		return nil, false
	}

	switch raw.Type {
	case models.RecordTypeTableDump:
		if raw.Prefix == nil || *raw.Prefix == "" || raw.Entries == nil {
			return nil, false
		}
		entries := make([]models.PeerEntry, 0, len(*raw.Entries))
		for _, e := range *raw.Entries {
			originated, _ := parseNumber(e.OriginatedTimestamp)
			entries = append(entries, models.PeerEntry{
				PeerIP:              e.PeerIP,
				PeerAS:              parseASN(e.PeerAS),
				OriginatedTimestamp: originated,
				ASPath:              parseASPath(e.ASPath),
			})
		}
		return models.BaselineView{
			Timestamp: ts,
			Prefix:    *raw.Prefix,
			Entries:   entries,
		}, true

	case models.RecordTypeUpdate:
		return models.UpdateBatch{
			Timestamp: ts,
			PeerAS:    parseASN(raw.PeerAS),
			PeerIP:    raw.PeerIP,
			ASPath:    parseASPath(raw.ASPath),
			Announce:  raw.Announce,
			Withdraw:  raw.Withdraw,
		}, true
	}

	return nil, false
}

// LineKind classifies a line by its "type" field alone. A line whose type is
// known still classifies its source when other required fields are missing.
func LineKind(line []byte) (models.SourceKind, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return models.SourceUnknown, false
	}
	switch head.Type {
	case models.RecordTypeTableDump:
		return models.SourceBaseline, true
	case models.RecordTypeUpdate:
		return models.SourceUpdates, true
	}
	return models.SourceUnknown, false
}

// parseNumber reads a JSON number or numeric string. NaN and infinities are
// rejected.
func parseNumber(data json.RawMessage) (float64, bool) {
	if len(data) == 0 || string(data) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return 0, false
		}
		if num, err = strconv.ParseFloat(strings.TrimSpace(str), 64); err != nil {
			return 0, false
		}
	}

	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	return num, true
}

// parseASN parses an ASN that can be an integer, a float such as 99999.0 or a string.
func parseASN(data json.RawMessage) uint32 {
	num, ok := parseNumber(data)
	if !ok || num < 0 || num > math.MaxUint32 {
		return 0
	}
	return uint32(num)
}

// parseASPath normalises the AS path to its space separated string form.
// Input can be: "174 3356 65001", [174, 3356, 65001] or [[174], [3356, 65001], 65002]
func parseASPath(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return str
	}

	var mixedArray []json.RawMessage
	if err := json.Unmarshal(data, &mixedArray); err != nil {
		return ""
	}

	parts := make([]string, 0, len(mixedArray))
	for _, elem := range mixedArray {
		// AS_SET, flattened
		var set []json.RawMessage
		if err := json.Unmarshal(elem, &set); err == nil {
			for _, as := range set {
				parts = append(parts, formatHop(as))
			}
			continue
		}
		parts = append(parts, formatHop(elem))
	}

	return strings.Join(parts, " ")
}

// formatHop renders one AS of an array path. Values that are not a valid
// 32-bit AS number keep their raw text so OriginASN rejects them.
func formatHop(data json.RawMessage) string {
	var num float64
	if err := json.Unmarshal(data, &num); err != nil || num < 0 || num > math.MaxUint32 || num != math.Trunc(num) {
		return string(data)
	}
	return strconv.FormatUint(uint64(num), 10)
}

// OriginASN returns the last AS of a space separated path.
func OriginASN(asPath string) (uint32, bool) {
	fields := strings.Fields(asPath)
	if len(fields) == 0 {
		return 0, false
	}
	origin, err := strconv.ParseUint(fields[len(fields)-1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(origin), true
}
