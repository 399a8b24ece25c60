package sqlstore

import (
	"fmt"
	"sort"

	"karoo_lodge/internal/domain"
)

type colKind int

const (
	kText colKind = iota
	kInt
	kJSON
	kTime
)

type column struct {
	name string
	kind colKind
}

type table struct {
	name string
	cols []column
	kind map[string]colKind
}

func (t *table) has(col string) bool {
	_, ok := t.kind[col]
	return ok
}

// pick resolves a column list; an empty list selects every column.
func (t *table) pick(names []string) ([]column, error) {
	if len(names) == 0 {
		return t.cols, nil
	}
	out := make([]column, 0, len(names))
	for _, n := range names {
		k, ok := t.kind[n]
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q on %s", domain.ErrInvalid, n, t.name)
		}
		out = append(out, column{name: n, kind: k})
	}
	return out, nil
}

// Every table carries id and created_at; the rest is per table.
var tables = map[string]*table{}

// tableOrder is creation order for Migrate.
var tableOrder []string

func def(name string, cols ...column) {
	all := append([]column{{"id", kText}}, cols...)
	all = append(all, column{"created_at", kTime})
	t := &table{name: name, cols: all, kind: make(map[string]colKind, len(all))}
	for _, c := range all {
		t.kind[c.name] = c.kind
	}
	tables[name] = t
	tableOrder = append(tableOrder, name)
}

func text(n string) column  { return column{n, kText} }
func num(n string) column   { return column{n, kInt} }
func jsonc(n string) column { return column{n, kJSON} }

func init() {
	def("rooms", text("name"), text("type"), text("short_description"), text("description"), text("price"),
		text("image"), jsonc("images"), jsonc("amenities"), num("sort_order"))
	def("events", text("title"), text("date"), text("category"), text("description"), text("image"), num("sort_order"))
	def("wines", text("name"), text("vintage"), text("region"), text("tasting_notes"), text("image"), num("sort_order"))
	def("amenities", text("name"), text("description"), text("icon"), text("image"), num("sort_order"))

	def("hero_section", text("title"), text("subtitle"), text("description"), text("background_image"),
		text("cta_text"), text("cta_link"))
	def("restaurant_info", text("title"), text("subtitle"), text("description"), text("background_image"),
		jsonc("features"), jsonc("menu_sections"))
	def("bar_info", text("title"), text("subtitle"), text("description"), text("background_image"))
	def("wine_boutique_info", text("title"), text("subtitle"), text("description"), text("background_image"))
	def("gallery_section", text("title"), jsonc("images"))
	def("contact_info", text("title"), text("subtitle"), text("description"), text("background_image"),
		text("address"), text("phone"), text("email"), text("hours"), text("map_embed_url"), jsonc("social_links"))

	def("contacts", text("name"), text("email"), text("message"))
	def("bookings", text("name"), text("email"), text("phone"), text("room_id"), text("check_in"),
		text("check_out"), num("guests"), text("message"))
	def("event_inquiries", text("event_id"), text("name"), text("email"), text("message"))
	def("wine_inquiries", text("wine_id"), text("name"), text("email"), text("message"))
	def("restaurant_reservations", text("name"), text("email"), text("phone"), text("date"), text("time"),
		num("guests"), text("message"))
}

func lookup(name string) (*table, error) {
	t, ok := tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", domain.ErrInvalid, name)
	}
	return t, nil
}

// Tables lists every table the store manages, in creation order.
func Tables() []string { return append([]string(nil), tableOrder...) }

func sortedKeys(r domain.Row) []string {
	ks := make([]string, 0, len(r))
	for k := range r {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
