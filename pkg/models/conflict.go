package models

// Announce types
const (
	AnnounceUpdate   = "U"
	AnnounceBaseline = "F"
)

// Announce describes the claim that triggered a conflict.
type Announce struct {
	Type   string `json:"type"` // "U" update, "F" full table
	Prefix string `json:"prefix"`
	ASN    uint32 `json:"asn"`
	ASPath string `json:"as_path"`
}

// ConflictWith is the registered owner the claim collided with.
type ConflictWith struct {
	ASN    uint32 `json:"asn"`
	Prefix string `json:"prefix"`
}

// Conflict is a detected origin conflict. ASN mirrors ConflictWith.ASN.
type Conflict struct {
	Timestamp    float64      `json:"timestamp"`
	Collector    string       `json:"collector"`
	PeerAS       uint32       `json:"peer_as"`
	PeerIP       string       `json:"peer_ip"`
	Announce     Announce     `json:"announce"`
	ConflictWith ConflictWith `json:"conflict_with"`
	ASN          uint32       `json:"asn"`
}

// AnnounceType maps a source kind to its announce type letter.
func AnnounceType(k SourceKind) string {
	if k == SourceBaseline {
		return AnnounceBaseline
	}
	return AnnounceUpdate
}
