package domain

import "strings"

// Collection is a table of ordered, admin-editable items.
type Collection string

const (
	Rooms     Collection = "rooms"
	Events    Collection = "events"
	Wines     Collection = "wines"
	Amenities Collection = "amenities"
)

var Collections = []Collection{Rooms, Events, Wines, Amenities}

// DedupeCollections lists the tables that carry a natural key.
var DedupeCollections = []Collection{Rooms, Events, Wines}

func (c Collection) Table() string { return string(c) }

// SecondaryOrder is the tie-break column applied after sort_order.
func (c Collection) SecondaryOrder() string {
	if c == Events {
		return "date"
	}
	return "name"
}

func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// SectionKind names a singleton page section.
type SectionKind string

const (
	SectionHero         SectionKind = "hero"
	SectionRestaurant   SectionKind = "restaurant"
	SectionBar          SectionKind = "bar"
	SectionWineBoutique SectionKind = "wine_boutique"
	SectionGallery      SectionKind = "gallery"
	SectionContact      SectionKind = "contact"
)

var SectionKinds = []SectionKind{
	SectionHero, SectionRestaurant, SectionBar, SectionWineBoutique, SectionGallery, SectionContact,
}

var sectionTables = map[SectionKind]string{
	SectionHero:         "hero_section",
	SectionRestaurant:   "restaurant_info",
	SectionBar:          "bar_info",
	SectionWineBoutique: "wine_boutique_info",
	SectionGallery:      "gallery_section",
	SectionContact:      "contact_info",
}

func (k SectionKind) Table() string { return sectionTables[k] }

// WellKnownID is the id a section row gets when it is first inserted.
func (k SectionKind) WellKnownID() string { return string(k) }

// Slug is the URL form of the kind.
func (k SectionKind) Slug() string { return strings.ReplaceAll(string(k), "_", "-") }

// ParseSectionKind accepts both "wine-boutique" and "wine_boutique".
func ParseSectionKind(s string) (SectionKind, bool) {
	k := SectionKind(strings.ReplaceAll(s, "-", "_"))
	_, ok := sectionTables[k]
	return k, ok
}

// SubmissionKind names an append-only public form table.
type SubmissionKind string

const (
	SubmissionContact     SubmissionKind = "contact"
	SubmissionBooking     SubmissionKind = "booking"
	SubmissionEvent       SubmissionKind = "event-inquiry"
	SubmissionWine        SubmissionKind = "wine-inquiry"
	SubmissionReservation SubmissionKind = "reservation"
)

var submissionTables = map[SubmissionKind]string{
	SubmissionContact:     "contacts",
	SubmissionBooking:     "bookings",
	SubmissionEvent:       "event_inquiries",
	SubmissionWine:        "wine_inquiries",
	SubmissionReservation: "restaurant_reservations",
}

var SubmissionKinds = []SubmissionKind{
	SubmissionContact, SubmissionBooking, SubmissionEvent, SubmissionWine, SubmissionReservation,
}

func (k SubmissionKind) Table() string { return submissionTables[k] }

func ParseSubmissionKind(s string) (SubmissionKind, bool) {
	_, ok := submissionTables[SubmissionKind(s)]
	return SubmissionKind(s), ok
}

// ContentTables lists every table the public site reads.
func ContentTables() []string {
	out := make([]string, 0, len(Collections)+len(SectionKinds))
	for _, c := range Collections {
		out = append(out, c.Table())
	}
	for _, k := range SectionKinds {
		out = append(out, k.Table())
	}
	return out
}

// SubmissionTables lists every table public forms append to.
func SubmissionTables() []string {
	out := make([]string, 0, len(SubmissionKinds))
	for _, k := range SubmissionKinds {
		out = append(out, k.Table())
	}
	return out
}
