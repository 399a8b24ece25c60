package app

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/domain"
)

// Source says where a read was served from.
type Source string

const (
	SourceStore   Source = "store"
	SourceDefault Source = "default"
)

// Result is a read that cannot fail: Data comes from the store or, when the
// store errors or has nothing, from the bundled catalog.
type Result[T any] struct {
	Data   T      `json:"data"`
	Source Source `json:"source"`
	Reason string `json:"-"` // why the default was served
}

const defaultReadTimeout = 3 * time.Second

// ContentService reads page content for visitors through the restricted
// gateway.
type ContentService struct {
	gw         domain.Gateway
	cat        *catalog.Catalog
	timeout    time.Duration
	retryDelay time.Duration
}

func NewContentService(gw domain.Gateway, cat *catalog.Catalog, timeout time.Duration) *ContentService {
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return &ContentService{gw: gw, cat: cat, timeout: timeout, retryDelay: 100 * time.Millisecond}
}

// defaults returns a private copy; decoding a row onto catalog slices must
// never write into the shared catalog.
func (s *ContentService) defaults() *catalog.Catalog { return s.cat.Clone() }

// fetch runs one bounded select and retries it once.
func (s *ContentService) fetch(ctx context.Context, table string, q domain.Query) ([]domain.Row, error) {
	var rows []domain.Row
	err := retry.Do(
		func() error {
			actx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			r, err := s.gw.Select(actx, table, q)
			if err != nil {
				return err
			}
			rows = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, domain.ErrForbidden) && !errors.Is(err, domain.ErrInvalid)
		}),
	)
	return rows, err
}

func fallback[T any](ctx context.Context, section, reason string, err error, def T) Result[T] {
	observability.ObserveFallback(section, reason)
	ev := log.Ctx(ctx).Warn().Str("section", section).Str("reason", reason)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("serving default content")
	msg := reason
	if err != nil {
		msg = reason + ": " + err.Error()
	}
	return Result[T]{Data: def, Source: SourceDefault, Reason: msg}
}

func collectionQuery(c domain.Collection) domain.Query {
	return domain.Query{Orders: []domain.Order{domain.Asc("sort_order"), domain.Asc(c.SecondaryOrder())}}
}

func readCollection[T any](ctx context.Context, s *ContentService, c domain.Collection, def []T) Result[[]T] {
	rows, err := s.fetch(ctx, c.Table(), collectionQuery(c))
	if err != nil {
		return fallback(ctx, string(c), "error", err, def)
	}
	items, errs := decodeRows[T](rows)
	for _, e := range errs {
		log.Ctx(ctx).Warn().Err(e).Str("section", string(c)).Msg("skipping malformed row")
	}
	if len(items) == 0 {
		return fallback(ctx, string(c), "empty", nil, def)
	}
	return Result[[]T]{Data: items, Source: SourceStore}
}

// sectionQuery picks the earliest row, the same row writers update.
var sectionQuery = domain.Query{Orders: []domain.Order{domain.Asc("created_at")}, Limit: 1}

func readSection[T domain.Section](ctx context.Context, s *ContentService, def T) Result[T] {
	k := def.Kind()
	rows, err := s.fetch(ctx, k.Table(), sectionQuery)
	if err != nil {
		return fallback(ctx, string(k), "error", err, def)
	}
	if len(rows) == 0 {
		return fallback(ctx, string(k), "empty", nil, def)
	}
	// decode onto a second copy so a failed decode cannot leak half a row
	merged := def
	if err := decodeRow(rows[0], &merged); err != nil {
		return fallback(ctx, string(k), "error", err, s.sectionDefault(k).(T))
	}
	if g, ok := any(merged).(domain.GallerySection); ok {
		if g.Filled() == 0 {
			return fallback(ctx, string(k), "empty", nil, s.sectionDefault(k).(T))
		}
		g.Images = g.Slots()
		merged = any(g).(T)
	}
	return Result[T]{Data: merged, Source: SourceStore}
}

func (s *ContentService) sectionDefault(k domain.SectionKind) domain.Section {
	return s.defaults().Section(k)
}

func (s *ContentService) Rooms(ctx context.Context) Result[[]domain.Room] {
	return readCollection(ctx, s, domain.Rooms, s.defaults().Rooms)
}

func (s *ContentService) Events(ctx context.Context) Result[[]domain.Event] {
	return readCollection(ctx, s, domain.Events, s.defaults().Events)
}

func (s *ContentService) Wines(ctx context.Context) Result[[]domain.Wine] {
	return readCollection(ctx, s, domain.Wines, s.defaults().Wines)
}

func (s *ContentService) Amenities(ctx context.Context) Result[[]domain.Amenity] {
	return readCollection(ctx, s, domain.Amenities, s.defaults().Amenities)
}

// Reviews are bundled testimonials only.
func (s *ContentService) Reviews(context.Context) Result[[]domain.Review] {
	return Result[[]domain.Review]{Data: s.defaults().Reviews, Source: SourceDefault, Reason: "static"}
}

func (s *ContentService) Hero(ctx context.Context) Result[domain.HeroSection] {
	return readSection(ctx, s, s.defaults().Sections.Hero)
}

func (s *ContentService) Restaurant(ctx context.Context) Result[domain.RestaurantSection] {
	return readSection(ctx, s, s.defaults().Sections.Restaurant)
}

func (s *ContentService) Bar(ctx context.Context) Result[domain.BarSection] {
	return readSection(ctx, s, s.defaults().Sections.Bar)
}

func (s *ContentService) WineBoutique(ctx context.Context) Result[domain.WineBoutiqueSection] {
	return readSection(ctx, s, s.defaults().Sections.WineBoutique)
}

func (s *ContentService) Gallery(ctx context.Context) Result[domain.GallerySection] {
	return readSection(ctx, s, s.defaults().Sections.Gallery)
}

func (s *ContentService) Contact(ctx context.Context) Result[domain.ContactSection] {
	return readSection(ctx, s, s.defaults().Sections.Contact)
}

// Section reads any section kind behind the common interface.
func (s *ContentService) Section(ctx context.Context, k domain.SectionKind) Result[domain.Section] {
	switch k {
	case domain.SectionHero:
		return widen(s.Hero(ctx))
	case domain.SectionRestaurant:
		return widen(s.Restaurant(ctx))
	case domain.SectionBar:
		return widen(s.Bar(ctx))
	case domain.SectionWineBoutique:
		return widen(s.WineBoutique(ctx))
	case domain.SectionGallery:
		return widen(s.Gallery(ctx))
	default:
		return widen(s.Contact(ctx))
	}
}

func widen[T domain.Section](r Result[T]) Result[domain.Section] {
	return Result[domain.Section]{Data: r.Data, Source: r.Source, Reason: r.Reason}
}

// HomePage is every section the landing page renders.
type HomePage struct {
	Hero         Result[domain.HeroSection]         `json:"hero"`
	Rooms        Result[[]domain.Room]              `json:"rooms"`
	Amenities    Result[[]domain.Amenity]           `json:"amenities"`
	Restaurant   Result[domain.RestaurantSection]   `json:"restaurant"`
	Bar          Result[domain.BarSection]          `json:"bar"`
	WineBoutique Result[domain.WineBoutiqueSection] `json:"wine_boutique"`
	Wines        Result[[]domain.Wine]              `json:"wines"`
	Events       Result[[]domain.Event]             `json:"events"`
	Gallery      Result[domain.GallerySection]      `json:"gallery"`
	Reviews      Result[[]domain.Review]            `json:"reviews"`
	Contact      Result[domain.ContactSection]      `json:"contact"`
}

// Home loads every section concurrently. Each section falls back on its
// own, so one slow table never blanks the page.
func (s *ContentService) Home(ctx context.Context) (HomePage, error) {
	var p HomePage
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error { p.Hero = s.Hero(gctx); return nil })
	g.Go(func() error { p.Rooms = s.Rooms(gctx); return nil })
	g.Go(func() error { p.Amenities = s.Amenities(gctx); return nil })
	g.Go(func() error { p.Restaurant = s.Restaurant(gctx); return nil })
	g.Go(func() error { p.Bar = s.Bar(gctx); return nil })
	g.Go(func() error { p.WineBoutique = s.WineBoutique(gctx); return nil })
	g.Go(func() error { p.Wines = s.Wines(gctx); return nil })
	g.Go(func() error { p.Events = s.Events(gctx); return nil })
	g.Go(func() error { p.Gallery = s.Gallery(gctx); return nil })
	g.Go(func() error { p.Contact = s.Contact(gctx); return nil })
	p.Reviews = s.Reviews(ctx)
	if err := g.Wait(); err != nil {
		return HomePage{}, err
	}
	return p, ctx.Err()
}
