// Package catalog holds the bundled default content served when the table
// store has nothing to offer.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"karoo_lodge/internal/domain"
)

//go:embed catalog.yaml
var raw []byte

type Sections struct {
	Hero         domain.HeroSection         `yaml:"hero"`
	Restaurant   domain.RestaurantSection   `yaml:"restaurant"`
	Bar          domain.BarSection          `yaml:"bar"`
	WineBoutique domain.WineBoutiqueSection `yaml:"wine_boutique"`
	Gallery      domain.GallerySection      `yaml:"gallery"`
	Contact      domain.ContactSection      `yaml:"contact"`
}

type Catalog struct {
	Sections  Sections         `yaml:"sections"`
	Rooms     []domain.Room    `yaml:"rooms"`
	Events    []domain.Event   `yaml:"events"`
	Wines     []domain.Wine    `yaml:"wines"`
	Amenities []domain.Amenity `yaml:"amenities"`
	Reviews   []domain.Review  `yaml:"reviews"`
}

var (
	once   sync.Once
	parsed Catalog
	errP   error
)

// Default returns a private copy of the bundled catalog. It panics if the
// embedded file is malformed, which only a broken build can cause.
func Default() *Catalog {
	once.Do(func() { parsed, errP = Parse(raw) })
	if errP != nil {
		panic(errP)
	}
	return parsed.Clone()
}

func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Rooms) == 0 || len(c.Events) == 0 || len(c.Wines) == 0 {
		return Catalog{}, fmt.Errorf("parse catalog: rooms, events and wines must not be empty")
	}
	if len(c.Sections.Gallery.Images) > domain.GallerySlots {
		return Catalog{}, fmt.Errorf("parse catalog: gallery has %d images, max %d", len(c.Sections.Gallery.Images), domain.GallerySlots)
	}
	return c, nil
}

// Clone deep-copies every slice so callers may mutate the result freely.
func (c Catalog) Clone() *Catalog {
	out := c
	out.Rooms = make([]domain.Room, len(c.Rooms))
	for i, r := range c.Rooms {
		r.Images = clone(r.Images)
		r.Amenities = clone(r.Amenities)
		out.Rooms[i] = r
	}
	out.Events = clone(c.Events)
	out.Wines = clone(c.Wines)
	out.Amenities = clone(c.Amenities)
	out.Reviews = clone(c.Reviews)

	out.Sections.Restaurant.Features = clone(c.Sections.Restaurant.Features)
	out.Sections.Restaurant.MenuSections = make([]domain.MenuSection, len(c.Sections.Restaurant.MenuSections))
	for i, ms := range c.Sections.Restaurant.MenuSections {
		ms.Items = clone(ms.Items)
		out.Sections.Restaurant.MenuSections[i] = ms
	}
	out.Sections.Gallery.Images = c.Sections.Gallery.Slots()
	return &out
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Section returns the default content for one section kind.
func (c *Catalog) Section(k domain.SectionKind) domain.Section {
	switch k {
	case domain.SectionHero:
		return c.Sections.Hero
	case domain.SectionRestaurant:
		return c.Sections.Restaurant
	case domain.SectionBar:
		return c.Sections.Bar
	case domain.SectionWineBoutique:
		return c.Sections.WineBoutique
	case domain.SectionGallery:
		return c.Sections.Gallery
	case domain.SectionContact:
		return c.Sections.Contact
	}
	return nil
}
