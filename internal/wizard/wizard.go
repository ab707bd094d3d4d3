// Package wizard drives the four-step registration flow. A Draft is the
// explicit, serializable context object that accumulates a school's input
// across steps; it lives server-side in the draft store under its own id
// so the flow survives page reloads without any client-held globals.
// Guard failures are local and non-fatal: they never mutate a remote
// resource and leave the draft's step unchanged.
package wizard

import (
	"fmt"
	"time"

	"github.com/pmicianjur/pelantikan-api/internal/importer"
	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
)

// Step identifies one screen of the wizard. Steps are strictly linear;
// skipping is impossible because Advance only ever moves one step after
// its guard passes.
type Step int

const (
	StepSchoolInfo Step = iota + 1
	StepParticipantData
	StepTentAndLand
	StepConfirmation
)

// String names the step for messages and JSON.
func (s Step) String() string {
	switch s {
	case StepSchoolInfo:
		return "school_info"
	case StepParticipantData:
		return "participant_data"
	case StepTentAndLand:
		return "tent_and_land"
	case StepConfirmation:
		return "confirmation"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// GuardError reports why an advance was refused. It is user-correctable:
// handlers surface the message inline with a 400 and nothing else happens.
type GuardError struct {
	Msg string
}

func (e *GuardError) Error() string { return e.Msg }

// Draft is the in-progress registration payload.
type Draft struct {
	ID        string    `json:"id"`
	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"created_at"`

	// step 1
	SchoolName string         `json:"nama_sekolah"`
	Supervisor string         `json:"nama_pembina"`
	WhatsApp   string         `json:"nomor_whatsapp"`
	Category   model.Category `json:"kategori"`

	// step 2
	Roster importer.Roster `json:"roster"`

	// step 3
	TentOption   pricing.TentOption `json:"sewa_tenda"`
	TentCapacity int                `json:"kapasitas_tenda"`
	PlotID       *uint64            `json:"lahan_id"`
}

// New returns a fresh draft positioned at the first step. The category
// defaults to Madya, matching the registration form's initial selection.
func New(id string) *Draft {
	return &Draft{
		ID:        id,
		Step:      StepSchoolInfo,
		CreatedAt: time.Now().UTC(),
		Category:  model.CategoryMadya,
	}
}

// Advance validates the guard for the current step and, if it passes,
// moves the draft forward one step. On failure the step is unchanged and
// a *GuardError explains the shortfall.
func (d *Draft) Advance(sched pricing.Schedule) error {
	switch d.Step {
	case StepSchoolInfo:
		if d.SchoolName == "" || d.Supervisor == "" || d.WhatsApp == "" {
			return &GuardError{Msg: "school name, supervisor name and WhatsApp number are all required"}
		}
		if !d.Category.Valid() {
			return &GuardError{Msg: "category must be Wira or Madya"}
		}
	case StepParticipantData:
		total := len(d.Roster.Participants)
		if total == 0 {
			return &GuardError{Msg: "no participant roster has been imported yet"}
		}
		if missing := total - d.Roster.MatchedCount(); missing > 0 {
			return &GuardError{Msg: fmt.Sprintf("%d participant photo(s) still unmatched", missing)}
		}
	case StepTentAndLand:
		if d.TentOption == pricing.TentNone || d.TentCapacity <= 0 {
			return &GuardError{Msg: "choose a tent option and capacity first"}
		}
		if d.TentOption == pricing.TentCommittee {
			if _, ok := sched.TentPrices[d.TentCapacity]; !ok {
				return &GuardError{Msg: fmt.Sprintf("committee tents come in capacities %v only", sched.TentCapacities())}
			}
		}
		if d.PlotID == nil {
			return &GuardError{Msg: "a plot must be selected on the site map to continue"}
		}
	case StepConfirmation:
		return &GuardError{Msg: "already at the final step"}
	default:
		return &GuardError{Msg: "unknown wizard step"}
	}
	d.Step++
	return nil
}

// Back moves one step backwards. Backward navigation is always allowed
// except from the first step.
func (d *Draft) Back() error {
	if d.Step <= StepSchoolInfo {
		return &GuardError{Msg: "already at the first step"}
	}
	d.Step--
	return nil
}

// Quote prices the draft as it currently stands.
func (d *Draft) Quote(sched pricing.Schedule) pricing.Quote {
	return sched.Calculate(len(d.Roster.Participants), len(d.Roster.Chaperones), d.TentOption, d.TentCapacity)
}

// SubmissionParticipant is one participant inside an assembled payload.
type SubmissionParticipant struct {
	FullName string `json:"nama_lengkap"`
	PhotoRef string `json:"photo_ref"`
}

// Submission is the complete payload handed to the payment flow when the
// wizard's terminal Submit fires. It is what gets serialized into a
// pending transaction and later committed by the webhook finalizer.
type Submission struct {
	SchoolName   string                  `json:"nama_sekolah"`
	Supervisor   string                  `json:"nama_pembina"`
	WhatsApp     string                  `json:"nomor_whatsapp"`
	Category     model.Category          `json:"kategori"`
	Participants []SubmissionParticipant `json:"peserta"`
	Chaperones   []string                `json:"pendamping"`
	PlotID       *uint64                 `json:"lahan_id"`
	TentOption   pricing.TentOption      `json:"sewa_tenda"`
	TentCapacity int                     `json:"kapasitas_tenda"`
	TentFee      int64                   `json:"biaya_sewa_tenda"`
	TotalFee     int64                   `json:"total_biaya"`
}

// Submit assembles the final payload. It re-runs every guard from the
// top so a tampered draft cannot slip an incomplete submission through,
// then prices the roster with the same schedule the wizard validated
// against. The draft must already sit at the confirmation step.
func (d *Draft) Submit(sched pricing.Schedule) (*Submission, error) {
	if d.Step != StepConfirmation {
		return nil, &GuardError{Msg: "the wizard has not reached the confirmation step"}
	}
	probe := *d
	probe.Step = StepSchoolInfo
	for probe.Step < StepConfirmation {
		if err := probe.Advance(sched); err != nil {
			return nil, err
		}
	}

	q := d.Quote(sched)
	sub := &Submission{
		SchoolName:   d.SchoolName,
		Supervisor:   d.Supervisor,
		WhatsApp:     d.WhatsApp,
		Category:     d.Category,
		Participants: make([]SubmissionParticipant, 0, len(d.Roster.Participants)),
		Chaperones:   make([]string, 0, len(d.Roster.Chaperones)),
		PlotID:       d.PlotID,
		TentOption:   d.TentOption,
		TentCapacity: d.TentCapacity,
		TentFee:      q.TentFee,
		TotalFee:     q.Total,
	}
	for _, p := range d.Roster.Participants {
		sub.Participants = append(sub.Participants, SubmissionParticipant{
			FullName: p.FullName,
			PhotoRef: p.PhotoRef,
		})
	}
	for _, ch := range d.Roster.Chaperones {
		sub.Chaperones = append(sub.Chaperones, ch.FullName)
	}
	return sub, nil
}
