package model

// Participant is a single registered youth member. Rows are bulk-inserted
// by the webhook finalizer once payment is confirmed; PhotoURL points at
// the promoted object-storage location and is nil until the photo upload
// completes. SchoolName is denormalized for the admin roster view.
type Participant struct {
	ID             uint64  `json:"id"`
	FullName       string  `json:"nama_lengkap"`
	PhotoURL       *string `json:"foto_url,omitempty"`
	RegistrationID uint64  `json:"pendaftaran_id"`
	SchoolName     string  `json:"nama_sekolah"`
}

// Chaperone accompanies a school's participants. Same lifecycle as
// Participant but without a photo.
type Chaperone struct {
	ID             uint64 `json:"id"`
	FullName       string `json:"nama_lengkap"`
	RegistrationID uint64 `json:"pendaftaran_id"`
	SchoolName     string `json:"nama_sekolah"`
}
