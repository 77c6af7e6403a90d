package script

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the textual form of a creation date.
const DateLayout = "2006-01-02"

// OrderKey is the two-level ordering key: creation date first, then the
// explicit order index assigned at authoring time.
type OrderKey struct {
	Date  time.Time
	Order int
}

// Less reports whether k sorts strictly before other.
func (k OrderKey) Less(other OrderKey) bool {
	if !k.Date.Equal(other.Date) {
		return k.Date.Before(other.Date)
	}
	return k.Order < other.Order
}

// String renders the key as "2016-06-22/1".
func (k OrderKey) String() string {
	return fmt.Sprintf("%s/%d", k.Date.Format(DateLayout), k.Order)
}

// KeyOf returns the ordering key of a script.
func KeyOf(s *Script) OrderKey {
	return OrderKey{Date: DateOf(s.Created), Order: s.Order}
}

// DocumentKeyOf returns the ordering key of a document.
func DocumentKeyOf(d *Document) OrderKey {
	return OrderKey{Date: DateOf(d.Created), Order: d.Order}
}

// DateOf truncates t to its UTC calendar date. Time of day never takes part
// in ordering.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD creation date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want %s): %w", s, DateLayout, err)
	}
	return t, nil
}

// SortScripts sorts scripts ascending by (date, order) in place.
// The sort is stable so equal keys keep their load order.
func SortScripts(scripts []*Script) {
	sort.SliceStable(scripts, func(i, j int) bool {
		return KeyOf(scripts[i]).Less(KeyOf(scripts[j]))
	})
}

// SortDocuments sorts documents ascending by (date, order) in place, and
// sorts each document's scripts.
func SortDocuments(docs []*Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return DocumentKeyOf(docs[i]).Less(DocumentKeyOf(docs[j]))
	})
	for _, d := range docs {
		SortScripts(d.Scripts)
	}
}
