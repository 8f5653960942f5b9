package iconcollector

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ImageHost serves every icon image. Download URLs are always built
// against it, whichever page markup the identifier came from.
const ImageHost = "img.icons8.com"

// DefaultSize is the pixel size used when a request leaves Size at zero.
const DefaultSize = 256

// IconRecord identifies one icon of a collection.
type IconRecord struct {
	// ID is the stable catalog identifier. Never empty.
	ID string `json:"id"`
	// Name is the human label, or a synthesized placeholder.
	Name string `json:"name"`
	// URL is the resolved PNG download URL for the requested size.
	URL string `json:"url"`
}

// IconURL returns the download URL for id at the given pixel size.
//
//	IconURL("ABC123", 256) == "https://img.icons8.com/?size=256&id=ABC123&format=png"
func IconURL(id string, size int) string {
	// Parameter order is fixed; url.Values would sort the keys.
	return "https://" + ImageHost + "/?size=" + strconv.Itoa(size) +
		"&id=" + url.QueryEscape(id) + "&format=png"
}

var idPattern = regexp.MustCompile(`id=([A-Za-z0-9_-]+)`)

// iconID pulls the identifier out of a srcset or src attribute value.
func iconID(attr string) (string, bool) {
	m := idPattern.FindStringSubmatch(attr)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// labelName derives a display name from an element's alt text. An empty
// label yields "icon_<index>".
func labelName(alt string, index int) string {
	name := strings.TrimSpace(alt)
	if name == "" {
		return fmt.Sprintf("icon_%d", index)
	}
	name = strings.TrimSpace(strings.TrimSuffix(name, " icon"))
	if name == "" {
		return fmt.Sprintf("icon_%d", index)
	}
	return name
}

// markupName is the name given to icons found in raw markup, where no
// label is available.
func markupName(id string) string {
	return "icon-" + id
}

// seenSet accumulates the records of a single extraction run. The first
// record for an ID wins; later ones are dropped.
type seenSet struct {
	size    int
	ids     map[string]struct{}
	records []IconRecord
}

func newSeenSet(size int) *seenSet {
	return &seenSet{size: size, ids: make(map[string]struct{}), records: []IconRecord{}}
}

// add records id under name and reports whether it was new.
func (s *seenSet) add(id, name string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.records = append(s.records, IconRecord{ID: id, Name: name, URL: IconURL(id, s.size)})
	return true
}

func (s *seenSet) len() int { return len(s.records) }
