package model

import "time"

// Category enumerates the two participant tiers. It determines which
// plots a school may book; it does not affect fees.
type Category string

const (
	CategoryWira  Category = "Wira"
	CategoryMadya Category = "Madya"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryWira || c == CategoryMadya
}

// RegistrationStatus enumerates the lifecycle states of a registration.
// Gateway submissions are born PENDING_PAYMENT (superseded flow) or
// created directly as PAID by the webhook finalizer; manual-transfer
// submissions are born WAITING_CONFIRMATION and flipped by an admin.
type RegistrationStatus string

const (
	StatusPendingPayment      RegistrationStatus = "PENDING_PAYMENT"
	StatusWaitingConfirmation RegistrationStatus = "WAITING_CONFIRMATION"
	StatusPaid                RegistrationStatus = "PAID"
)

// Registration records one school's submission for the event.
//
// Fields:
//  ID            – primary key identifier.
//  SchoolName    – registering school (nama_sekolah).
//  Supervisor    – accompanying supervisor (nama_pembina).
//  WhatsApp      – contact number used for confirmations.
//  Category      – participant tier (Wira or Madya).
//  Participants  – headcount; must equal the peserta row set once finalized.
//  Chaperones    – headcount; must equal the pendamping row set once finalized.
//  TentFee       – committee tent rental cost, zero when bringing own tent.
//  TotalFee      – grand total billed through the gateway or transfer.
//  Status        – lifecycle state, see RegistrationStatus.
//  ProofURL      – proof-of-payment image for the manual flow, nil otherwise.
//  OrderID       – gateway order identifier for webhook-committed rows.
//  CreatedAt     – creation timestamp.
type Registration struct {
	ID           uint64             `json:"id"`
	SchoolName   string             `json:"nama_sekolah"`
	Supervisor   string             `json:"nama_pembina"`
	WhatsApp     string             `json:"nomor_whatsapp"`
	Category     Category           `json:"kategori"`
	Participants int                `json:"jumlah_peserta"`
	Chaperones   int                `json:"jumlah_pendamping"`
	TentFee      int64              `json:"biaya_sewa_tenda"`
	TotalFee     int64              `json:"total_biaya"`
	Status       RegistrationStatus `json:"status"`
	ProofURL     *string            `json:"bukti_pembayaran_url,omitempty"`
	OrderID      *string            `json:"order_id,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}
