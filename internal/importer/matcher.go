package importer

import (
	"path/filepath"
	"strings"
)

// PhotoFile is one uploaded image: its original filename and a reference
// to wherever the bytes were staged (object key or URL).
type PhotoFile struct {
	Name string
	Ref  string
}

// MatchPhotos associates uploaded photos with participants by filename.
// For each file the extension is stripped and the remainder lowercased;
// the first participant still awaiting a photo whose full name or first
// name token equals it case-insensitively receives the file and moves to
// PHOTO_MATCHED. Already-matched participants are skipped even when a
// later file carries the same name, and files that match nobody are
// silently ignored. Returns the number of matches made in this call.
func MatchPhotos(roster *Roster, files []PhotoFile) int {
	matched := 0
	for _, f := range files {
		base := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
		key := strings.ToLower(base)
		for i := range roster.Participants {
			p := &roster.Participants[i]
			if p.PhotoStatus == PhotoMatched {
				continue
			}
			full := strings.ToLower(p.FullName)
			first := strings.ToLower(firstToken(p.FullName))
			if key == full || key == first {
				p.PhotoRef = f.Ref
				p.PhotoStatus = PhotoMatched
				matched++
				break
			}
		}
	}
	return matched
}

func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
