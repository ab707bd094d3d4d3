// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationPaidEvent is published when the webhook finalizer commits a
// registration, or when an admin approves a manual transfer. It carries
// enough for downstream consumers to log or notify without touching the
// primary database.
type RegistrationPaidEvent struct {
	RegistrationID uint64 `json:"registration_id"`
	OrderID        string `json:"order_id,omitempty"`
	SchoolName     string `json:"nama_sekolah"`
	Category       string `json:"kategori"`
	Participants   int    `json:"jumlah_peserta"`
	Chaperones     int    `json:"jumlah_pendamping"`
	PlotID         uint64 `json:"lahan_id,omitempty"`
	TotalFee       int64  `json:"total_biaya"`
	PaidAt         string `json:"paid_at"`
}
