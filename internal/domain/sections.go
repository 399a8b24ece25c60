package domain

// Section is the closed set of fields of one singleton page section.
type Section interface {
	Kind() SectionKind
}

type HeroSection struct {
	Title           string `json:"title" yaml:"title" validate:"required,max=200"`
	Subtitle        string `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Description     string `json:"description" yaml:"description" validate:"max=2000"`
	BackgroundImage string `json:"background_image" yaml:"background_image" validate:"max=2048"`
	CTAText         string `json:"cta_text" yaml:"cta_text" validate:"max=80"`
	CTALink         string `json:"cta_link" yaml:"cta_link" validate:"max=2048"`
}

func (HeroSection) Kind() SectionKind { return SectionHero }

type MenuItem struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=160"`
	Description string `json:"description" yaml:"description" validate:"max=1000"`
	Price       string `json:"price" yaml:"price" validate:"max=40"`
}

type MenuSection struct {
	Title string     `json:"title" yaml:"title" validate:"required,max=120"`
	Items []MenuItem `json:"items" yaml:"items" validate:"max=100,dive"`
}

type RestaurantSection struct {
	Title           string        `json:"title" yaml:"title" validate:"required,max=200"`
	Subtitle        string        `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Description     string        `json:"description" yaml:"description" validate:"max=2000"`
	BackgroundImage string        `json:"background_image" yaml:"background_image" validate:"max=2048"`
	Features        []string      `json:"features" yaml:"features" validate:"max=20,dive,max=200"`
	MenuSections    []MenuSection `json:"menu_sections" yaml:"menu_sections" validate:"max=20,dive"`
}

func (RestaurantSection) Kind() SectionKind { return SectionRestaurant }

type BarSection struct {
	Title           string `json:"title" yaml:"title" validate:"required,max=200"`
	Subtitle        string `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Description     string `json:"description" yaml:"description" validate:"max=2000"`
	BackgroundImage string `json:"background_image" yaml:"background_image" validate:"max=2048"`
}

func (BarSection) Kind() SectionKind { return SectionBar }

type WineBoutiqueSection struct {
	Title           string `json:"title" yaml:"title" validate:"required,max=200"`
	Subtitle        string `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Description     string `json:"description" yaml:"description" validate:"max=2000"`
	BackgroundImage string `json:"background_image" yaml:"background_image" validate:"max=2048"`
}

func (WineBoutiqueSection) Kind() SectionKind { return SectionWineBoutique }

// GallerySection holds exactly GallerySlots image slots; an empty string is
// an unfilled slot.
type GallerySection struct {
	Title  string   `json:"title" yaml:"title" validate:"max=200"`
	Images []string `json:"images" yaml:"images" validate:"max=8,dive,max=2048"`
}

func (GallerySection) Kind() SectionKind { return SectionGallery }

// Slots returns the images normalized to exactly GallerySlots entries.
func (g GallerySection) Slots() []string {
	out := make([]string, GallerySlots)
	copy(out, g.Images)
	return out
}

// Filled reports how many slots hold an image.
func (g GallerySection) Filled() int {
	n := 0
	for _, s := range g.Images {
		if s != "" {
			n++
		}
	}
	return n
}

type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty" yaml:"facebook" validate:"omitempty,url,max=2048"`
	Instagram string `json:"instagram,omitempty" yaml:"instagram" validate:"omitempty,url,max=2048"`
	Twitter   string `json:"twitter,omitempty" yaml:"twitter" validate:"omitempty,url,max=2048"`
	Youtube   string `json:"youtube,omitempty" yaml:"youtube" validate:"omitempty,url,max=2048"`
}

type ContactSection struct {
	Title           string      `json:"title" yaml:"title" validate:"required,max=200"`
	Subtitle        string      `json:"subtitle" yaml:"subtitle" validate:"max=300"`
	Description     string      `json:"description" yaml:"description" validate:"max=2000"`
	BackgroundImage string      `json:"background_image" yaml:"background_image" validate:"max=2048"`
	Address         string      `json:"address" yaml:"address" validate:"max=500"`
	Phone           string      `json:"phone" yaml:"phone" validate:"max=40"`
	Email           string      `json:"email" yaml:"email" validate:"omitempty,email"`
	Hours           string      `json:"hours" yaml:"hours" validate:"max=200"`
	MapEmbedURL     string      `json:"map_embed_url" yaml:"map_embed_url" validate:"omitempty,url,max=4096"`
	SocialLinks     SocialLinks `json:"social_links" yaml:"social_links"`
}

func (ContactSection) Kind() SectionKind { return SectionContact }
