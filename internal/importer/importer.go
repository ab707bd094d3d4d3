// Package importer parses uploaded roster spreadsheets and matches photo
// uploads to the participants they belong to. Parsing and matching are
// pure over their inputs; nothing here touches the network or storage.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	participantSheet = "Peserta"
	chaperoneSheet   = "Pendamping"
	nameHeader       = "Nama Lengkap"
)

// ErrMissingPesertaSheet is returned when the workbook has no sheet named
// "Peserta". The chaperone sheet is optional; this one is not.
var ErrMissingPesertaSheet = errors.New(`sheet "Peserta" not found in workbook`)

// PhotoStatus tracks whether a participant's photo has been supplied yet.
type PhotoStatus string

const (
	AwaitingPhoto PhotoStatus = "AWAITING_PHOTO"
	PhotoMatched  PhotoStatus = "PHOTO_MATCHED"
)

// ParticipantEntry is one imported participant row plus its photo state.
// PhotoRef is a handle to the staged upload (object key or URL) and stays
// empty until MatchPhotos attaches one.
type ParticipantEntry struct {
	FullName    string      `json:"nama_lengkap"`
	PhotoRef    string      `json:"photo_ref,omitempty"`
	PhotoStatus PhotoStatus `json:"status"`
}

// ChaperoneEntry is one imported chaperone row.
type ChaperoneEntry struct {
	FullName string `json:"nama_lengkap"`
}

// Roster is the in-memory result of a spreadsheet import.
type Roster struct {
	Participants []ParticipantEntry `json:"peserta"`
	Chaperones   []ChaperoneEntry   `json:"pendamping"`
}

// MatchedCount returns how many participants already have a photo.
func (r *Roster) MatchedCount() int {
	n := 0
	for _, p := range r.Participants {
		if p.PhotoStatus == PhotoMatched {
			n++
		}
	}
	return n
}

// ParseRoster reads an xlsx workbook and produces the participant and
// chaperone lists. A sheet literally named "Peserta" is required and its
// "Nama Lengkap" column supplies participant names in sheet order; a
// "Pendamping" sheet is read the same way when present. Every participant
// starts in AWAITING_PHOTO.
func ParseRoster(r io.Reader) (*Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names, err := sheetNames(f, participantSheet)
	if err != nil {
		return nil, err
	}
	roster := &Roster{
		Participants: make([]ParticipantEntry, 0, len(names)),
		Chaperones:   []ChaperoneEntry{},
	}
	for _, n := range names {
		roster.Participants = append(roster.Participants, ParticipantEntry{
			FullName:    n,
			PhotoStatus: AwaitingPhoto,
		})
	}

	if chapNames, err := sheetNames(f, chaperoneSheet); err == nil {
		for _, n := range chapNames {
			roster.Chaperones = append(roster.Chaperones, ChaperoneEntry{FullName: n})
		}
	}
	return roster, nil
}

// sheetNames extracts the "Nama Lengkap" column of the given sheet,
// skipping the header row and blank cells. A missing participant sheet
// maps to ErrMissingPesertaSheet so handlers can surface it as an import
// failure the user can correct by re-uploading.
func sheetNames(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		if sheet == participantSheet {
			return nil, ErrMissingPesertaSheet
		}
		return nil, err
	}
	if len(rows) == 0 {
		if sheet == participantSheet {
			return nil, fmt.Errorf(`sheet "Peserta": %w`, errEmptySheet)
		}
		return nil, errEmptySheet
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), nameHeader) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("sheet %q: missing %q header", sheet, nameHeader)
	}

	names := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[col])
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

var errEmptySheet = errors.New("sheet has no rows")
