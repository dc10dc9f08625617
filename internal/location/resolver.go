package location

import "strings"

// Resolve returns the first record, in catalog order, whose name appears verbatim in reply.
// There is no ranking: when several names occur, catalog order wins even over a longer match.
func Resolve(reply string, records []Location) (Location, bool) {
	for _, l := range records {
		if l.Name == "" {
			continue
		}
		if strings.Contains(reply, l.Name) {
			return l, true
		}
	}
	return Location{}, false
}
