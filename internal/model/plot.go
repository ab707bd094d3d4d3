package model

// Plot is a bookable campsite slot on the venue map (lahan). A plot is
// eligible for a registration when its category matches and its maximum
// capacity equals the chosen tent capacity exactly. RegistrationID is nil
// while the plot is unbooked; at most one registration ever owns a plot,
// enforced by a conditional update in the repository.
type Plot struct {
	ID             uint64   `json:"id"`
	Number         int      `json:"nomor_lahan"`
	Category       Category `json:"kategori"`
	MaxCapacity    int      `json:"kapasitas_maks"`
	RegistrationID *uint64  `json:"pendaftaran_id"`
}

// Booked reports whether the plot already belongs to a registration.
func (p Plot) Booked() bool { return p.RegistrationID != nil }
