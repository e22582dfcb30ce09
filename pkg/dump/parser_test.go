package dump

import (
	"testing"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
)

func TestParseLine_BaselineView(t *testing.T) {
	line := []byte(`{
		"entries": [{
			"peer_ip": "11.33.55.77",
			"peer_as": 99999.0,
			"originated_timestamp": 1451601000.0,
			"as_path": "22 333 4444 55555"
		}],
		"type": "table_dump_v2",
		"timestamp": 1451601234.0,
		"prefix": "1.2.3.0/24"
	}`)

	rec, ok := ParseLine(line)
	if !ok {
		t.Fatal("Expected record, got none")
	}
	view, isView := rec.(models.BaselineView)
	if !isView {
		t.Fatalf("Expected BaselineView, got %T", rec)
	}

	if view.Prefix != "1.2.3.0/24" {
		t.Errorf("Expected prefix 1.2.3.0/24, got %s", view.Prefix)
	}
	if view.Timestamp != 1451601234 {
		t.Errorf("Expected timestamp 1451601234, got %f", view.Timestamp)
	}
	if len(view.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(view.Entries))
	}
	entry := view.Entries[0]
	if entry.PeerAS != 99999 {
		t.Errorf("Expected peer AS 99999, got %d", entry.PeerAS)
	}
	if entry.PeerIP != "11.33.55.77" {
		t.Errorf("Expected peer IP 11.33.55.77, got %s", entry.PeerIP)
	}
	if entry.OriginatedTimestamp != 1451601000 {
		t.Errorf("Expected originated timestamp 1451601000, got %f", entry.OriginatedTimestamp)
	}
	if entry.ASPath != "22 333 4444 55555" {
		t.Errorf("Expected AS path '22 333 4444 55555', got %q", entry.ASPath)
	}
}

func TestParseLine_Update(t *testing.T) {
	line := []byte(`{
		"type": "update",
		"timestamp": 1451606698.0,
		"peer_as": 11111.0,
		"peer_ip": "22.44.66.88",
		"as_path": "1111 2222 3333",
		"announce": ["1.2.3.0/25"],
		"withdraw": ["5.6.7.0/24"]
	}`)

	rec, ok := ParseLine(line)
	if !ok {
		t.Fatal("Expected record, got none")
	}
	batch, isBatch := rec.(models.UpdateBatch)
	if !isBatch {
		t.Fatalf("Expected UpdateBatch, got %T", rec)
	}

	if batch.PeerAS != 11111 {
		t.Errorf("Expected peer AS 11111, got %d", batch.PeerAS)
	}
	if batch.ASPath != "1111 2222 3333" {
		t.Errorf("Expected AS path '1111 2222 3333', got %q", batch.ASPath)
	}
	if len(batch.Announce) != 1 || batch.Announce[0] != "1.2.3.0/25" {
		t.Errorf("Expected announce [1.2.3.0/25], got %v", batch.Announce)
	}
	if len(batch.Withdraw) != 1 || batch.Withdraw[0] != "5.6.7.0/24" {
		t.Errorf("Expected withdraw [5.6.7.0/24], got %v", batch.Withdraw)
	}
}

func TestParseLine_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `not json at all`},
		{"unknown type", `{"type": "state_change", "timestamp": 1.0}`},
		{"bview only type", `{"type": "table_dump_v2"}`},
		{"bview missing prefix", `{"type": "table_dump_v2", "timestamp": 1.0, "entries": []}`},
		{"bview missing entries", `{"type": "table_dump_v2", "timestamp": 1.0, "prefix": "1.2.3.0/24"}`},
		{"bview missing timestamp", `{"type": "table_dump_v2", "prefix": "1.2.3.0/24", "entries": []}`},
		{"update missing timestamp", `{"type": "update", "announce": ["1.2.3.0/24"], "as_path": "1 2"}`},
		{"entries wrong type", `{"type": "table_dump_v2", "timestamp": 1.0, "prefix": "1.2.3.0/24", "entries": "x"}`},
		{"nan timestamp", `{"type": "update", "timestamp": "NaN", "announce": ["1.2.3.0/24"], "as_path": "1 2"}`},
		{"infinite timestamp", `{"type": "update", "timestamp": "+Infinity", "announce": ["1.2.3.0/24"], "as_path": "1 2"}`},
		{"inf bview timestamp", `{"type": "table_dump_v2", "timestamp": "-Inf", "prefix": "1.2.3.0/24", "entries": []}`},
		{"overflowing timestamp", `{"type": "update", "timestamp": "1e400", "announce": ["1.2.3.0/24"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec, ok := ParseLine([]byte(tt.line)); ok {
				t.Errorf("Expected no record, got %#v", rec)
			}
		})
	}
}

func TestParseASN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint32
	}{
		{"number", "6939", 6939},
		{"float", "99999.0", 99999},
		{"quoted string", `"6939"`, 6939},
		{"four byte", "4200000000", 4200000000},
		{"negative", "-1", 0},
		{"negative string", `"-64512"`, 0},
		{"nan string", `"NaN"`, 0},
		{"too large", "4294967296", 0},
		{"empty", "", 0},
		{"null", "null", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseASN([]byte(tt.input))
			if result != tt.expected {
				t.Errorf("parseASN(%s): expected %d, got %d", tt.input, tt.expected, result)
			}
		})
	}
}

func TestParseASPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"string", `"22 333 4444"`, "22 333 4444"},
		{"array", `[174, 3356, 13335]`, "174 3356 13335"},
		{"nested AS_SET", `[[174], [3356, 7018], 13335]`, "174 3356 7018 13335"},
		{"empty", ``, ""},
		{"object", `{"a": 1}`, ""},
		{"negative hop kept raw", `[174, -5]`, "174 -5"},
		{"negative in AS_SET", `[174, [3356, -1]]`, "174 3356 -1"},
		{"fractional hop", `[174, 1.5]`, "174 1.5"},
		{"out of range hop", `[174, 4294967296]`, "174 4294967296"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseASPath([]byte(tt.input)); got != tt.expected {
				t.Errorf("parseASPath(%s): expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

func TestOriginASN(t *testing.T) {
	tests := []struct {
		path   string
		origin uint32
		ok     bool
	}{
		{"22 333 4444 55555", 55555, true},
		{"13335", 13335, true},
		{"  1111  2222 3333 ", 3333, true},
		{"", 0, false},
		{"174 {64512,64513}", 0, false},
	}

	for _, tt := range tests {
		origin, ok := OriginASN(tt.path)
		if origin != tt.origin || ok != tt.ok {
			t.Errorf("OriginASN(%q) = (%d, %v), want (%d, %v)", tt.path, origin, ok, tt.origin, tt.ok)
		}
	}
}

func TestParseLine_NegativeOriginHasNoOrigin(t *testing.T) {
	rec, ok := ParseLine([]byte(`{"type": "update", "timestamp": 1.0, "as_path": [174, -5], "announce": ["1.2.3.0/24"]}`))
	if !ok {
		t.Fatal("Expected update to parse")
	}
	batch := rec.(models.UpdateBatch)
	if origin, ok := OriginASN(batch.ASPath); ok {
		t.Errorf("Expected no origin for %q, got %d", batch.ASPath, origin)
	}
	if events := Expand(rec); len(events) != 0 {
		t.Errorf("Expected claim to be dropped, got %d events", len(events))
	}
}

func TestLineKind(t *testing.T) {
	tests := []struct {
		line string
		kind models.SourceKind
		ok   bool
	}{
		{`{"type": "table_dump_v2"}`, models.SourceBaseline, true},
		{`{"type": "update", "timestamp": "NaN"}`, models.SourceUpdates, true},
		{`{"type": "state_change"}`, models.SourceUnknown, false},
		{`{"timestamp": 1}`, models.SourceUnknown, false},
		{`garbage`, models.SourceUnknown, false},
	}

	for _, tt := range tests {
		kind, ok := LineKind([]byte(tt.line))
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("LineKind(%s): expected (%v, %v), got (%v, %v)", tt.line, tt.kind, tt.ok, kind, ok)
		}
	}
}
