// Package pricing holds the single canonical fee schedule for the event.
// Both the fee quote and the wizard's tent/land step validate against the
// same Schedule so the two can never drift apart.
package pricing

// TentOption selects how a school will camp.
type TentOption string

const (
	TentNone      TentOption = ""         // nothing chosen yet
	TentCommittee TentOption = "panitia"  // rent a committee tent, billed per the capacity table
	TentOwn       TentOption = "sendiri"  // bring your own tent, free of charge
)

// Schedule enumerates every rate the event charges. Amounts are rupiah.
type Schedule struct {
	ParticipantRate int64
	ChaperoneRate   int64
	TentPrices      map[int]int64 // committee tent capacity -> rental price
}

// Default is the schedule in effect for the current event year.
var Default = Schedule{
	ParticipantRate: 35000,
	ChaperoneRate:   25000,
	TentPrices: map[int]int64{
		15: 250000, // Tenda Dome
		20: 400000, // Tenda Regu
		50: 750000, // Tenda Pleton
	},
}

// TentCapacities lists the capacities a committee tent can be rented in,
// in ascending order. Used by the wizard to validate the chosen tier.
func (s Schedule) TentCapacities() []int {
	caps := make([]int, 0, len(s.TentPrices))
	for c := range s.TentPrices {
		caps = append(caps, c)
	}
	for i := 1; i < len(caps); i++ {
		for j := i; j > 0 && caps[j-1] > caps[j]; j-- {
			caps[j-1], caps[j] = caps[j], caps[j-1]
		}
	}
	return caps
}

// Quote is an itemized fee breakdown for one submission.
type Quote struct {
	ParticipantFee int64 `json:"biaya_peserta"`
	ChaperoneFee   int64 `json:"biaya_pendamping"`
	TentFee        int64 `json:"biaya_tenda"`
	Total          int64 `json:"total_biaya"`
}

// Calculate derives the line items and total from headcounts and the tent
// choice. A committee tent with an unknown capacity prices at zero, same
// as bringing your own; degenerate input (zero counts, no tent) totals
// zero. There are no error cases.
func (s Schedule) Calculate(participants, chaperones int, option TentOption, tentCapacity int) Quote {
	q := Quote{
		ParticipantFee: int64(participants) * s.ParticipantRate,
		ChaperoneFee:   int64(chaperones) * s.ChaperoneRate,
	}
	if option == TentCommittee {
		q.TentFee = s.TentPrices[tentCapacity]
	}
	q.Total = q.ParticipantFee + q.ChaperoneFee + q.TentFee
	return q
}
