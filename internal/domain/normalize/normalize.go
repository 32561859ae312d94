package normalize

import (
	"strings"

	"github.com/okian/loadboard/internal/domain/model"
)

// Report summarizes one normalization pass.
type Report struct {
	Input        int `json:"input"`        // raw records seen
	Output       int `json:"output"`       // events produced
	Dropped      int `json:"dropped"`      // records dropped for an unparseable timestamp
	MissingKey   int `json:"missing_key"`  // records dropped for a blank product or vehicle
	Unrecognized int `json:"unrecognized"` // events whose status label is outside the synonym table
}

// Events converts raw records into normalized events. A record whose
// timestamp cannot be parsed, or whose product or vehicle is blank, is
// dropped on its own; the rest of the batch is unaffected.
func Events(raw []model.RawEvent) ([]model.Event, Report) {
	rep := Report{Input: len(raw)}
	out := make([]model.Event, 0, len(raw))
	for i, r := range raw {
		at, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			rep.Dropped++
			continue
		}
		product := strings.TrimSpace(r.Product)
		vehicle := strings.TrimSpace(r.Vehicle)
		if product == "" || vehicle == "" {
			rep.MissingKey++
			continue
		}
		status := Status(r.Status)
		if !status.Known() {
			rep.Unrecognized++
		}
		out = append(out, model.Event{
			At:      at,
			Date:    model.DateOf(at),
			Product: product,
			Vehicle: vehicle,
			Status:  status,
			Seq:     i,
		})
	}
	rep.Output = len(out)
	return out, rep
}
