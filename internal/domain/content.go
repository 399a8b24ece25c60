package domain

import "time"

// GallerySlots is the fixed number of image slots in the gallery section.
const GallerySlots = 8

// Editable is the closed set of admin-writable fields of a collection item.
type Editable interface {
	Collection() Collection
}

type RoomFields struct {
	Name             string   `json:"name" yaml:"name" validate:"required,max=120"`
	Type             string   `json:"type" yaml:"type" validate:"max=120"`
	ShortDescription string   `json:"short_description" yaml:"short_description" validate:"max=500"`
	Description      string   `json:"description" yaml:"description" validate:"max=5000"`
	Price            string   `json:"price" yaml:"price" validate:"max=40"`
	Image            string   `json:"image" yaml:"image" validate:"max=2048"`
	Images           []string `json:"images" yaml:"images" validate:"max=24,dive,max=2048"`
	Amenities        []string `json:"amenities" yaml:"amenities" validate:"max=40,dive,max=120"`
}

func (RoomFields) Collection() Collection { return Rooms }

type Room struct {
	ID string `json:"id" yaml:"id,omitempty"`
	RoomFields `yaml:",inline"`
	SortOrder  *int       `json:"sort_order,omitempty" yaml:"-"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"-"`
}

type EventFields struct {
	Title       string `json:"title" yaml:"title" validate:"required,max=160"`
	Date        string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Category    string `json:"category" yaml:"category" validate:"max=80"`
	Description string `json:"description" yaml:"description" validate:"max=5000"`
	Image       string `json:"image" yaml:"image" validate:"max=2048"`
}

func (EventFields) Collection() Collection { return Events }

type Event struct {
	ID          string `json:"id" yaml:"id,omitempty"`
	EventFields `yaml:",inline"`
	SortOrder   *int       `json:"sort_order,omitempty" yaml:"-"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"-"`
}

type WineFields struct {
	Name         string `json:"name" yaml:"name" validate:"required,max=160"`
	Vintage      string `json:"vintage" yaml:"vintage" validate:"omitempty,numeric,len=4"`
	Region       string `json:"region" yaml:"region" validate:"max=120"`
	TastingNotes string `json:"tasting_notes" yaml:"tasting_notes" validate:"max=2000"`
	Image        string `json:"image" yaml:"image" validate:"max=2048"`
}

func (WineFields) Collection() Collection { return Wines }

type Wine struct {
	ID         string `json:"id" yaml:"id,omitempty"`
	WineFields `yaml:",inline"`
	SortOrder  *int       `json:"sort_order,omitempty" yaml:"-"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"-"`
}

type AmenityFields struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=120"`
	Description string `json:"description" yaml:"description" validate:"max=1000"`
	Icon        string `json:"icon" yaml:"icon" validate:"max=16"`
	Image       string `json:"image" yaml:"image" validate:"max=2048"`
}

func (AmenityFields) Collection() Collection { return Amenities }

type Amenity struct {
	ID            string `json:"id" yaml:"id,omitempty"`
	AmenityFields `yaml:",inline"`
	SortOrder     *int       `json:"sort_order,omitempty" yaml:"-"`
	CreatedAt     *time.Time `json:"created_at,omitempty" yaml:"-"`
}

// Review is a static testimonial; it has no table.
type Review struct {
	Name     string `json:"name" yaml:"name"`
	Location string `json:"location" yaml:"location"`
	Rating   int    `json:"rating" yaml:"rating"`
	Review   string `json:"review" yaml:"review"`
	Date     string `json:"date" yaml:"date"`
}

// RankAssignment is one entry of a reorder batch.
type RankAssignment struct {
	ID        string `json:"id" validate:"required,max=64"`
	SortOrder int    `json:"sort_order" validate:"min=1"`
}
