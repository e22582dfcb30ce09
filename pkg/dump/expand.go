package dump

import "github.com/hervehildenbrand/bgp-conflicts/pkg/models"

// Expand turns a record into its claim and withdrawal events.
// Claims without a parseable origin AS are skipped.
func Expand(rec models.Record) []models.Event {
	switch r := rec.(type) {
	case models.BaselineView:
		events := make([]models.Event, 0, len(r.Entries))
		for _, entry := range r.Entries {
			origin, ok := OriginASN(entry.ASPath)
			if !ok {
				continue
			}
			events = append(events, models.Event{
				Timestamp:           r.Timestamp,
				Kind:                models.Claim,
				SourceKind:          models.SourceBaseline,
				Prefix:              r.Prefix,
				OriginASN:           origin,
				PeerAS:              entry.PeerAS,
				PeerIP:              entry.PeerIP,
				ASPath:              entry.ASPath,
				OriginatedTimestamp: entry.OriginatedTimestamp,
			})
		}
		return events

	case models.UpdateBatch:
		events := make([]models.Event, 0, len(r.Announce)+len(r.Withdraw))
		if origin, ok := OriginASN(r.ASPath); ok {
			for _, prefix := range r.Announce {
				events = append(events, models.Event{
					Timestamp:  r.Timestamp,
					Kind:       models.Claim,
					SourceKind: models.SourceUpdates,
					Prefix:     prefix,
					OriginASN:  origin,
					PeerAS:     r.PeerAS,
					PeerIP:     r.PeerIP,
					ASPath:     r.ASPath,
				})
			}
		}
		for _, prefix := range r.Withdraw {
			events = append(events, models.Event{
				Timestamp:  r.Timestamp,
				Kind:       models.Withdrawal,
				SourceKind: models.SourceUpdates,
				Prefix:     prefix,
				PeerAS:     r.PeerAS,
				PeerIP:     r.PeerIP,
				ASPath:     r.ASPath,
			})
		}
		return events
	}

	return nil
}
