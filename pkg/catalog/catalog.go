// Package catalog serves the paginated Pokémon browser and search.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pokebattle/pkg/logging"
	"pokebattle/pkg/pokeapi"
)

// Source is the subset of the PokeAPI client the catalog reads from.
type Source interface {
	List(ctx context.Context, limit, offset int) (pokeapi.ListResponse, error)
	Pokemon(ctx context.Context, name string) (pokeapi.Pokemon, error)
	Species(ctx context.Context, id int) (pokeapi.Species, error)
}

// LoreSource supplies a description when the species has none.
type LoreSource interface {
	Lore(ctx context.Context, name string) (string, error)
}

type Pokemon struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Height         float64  `json:"height"`
	Weight         float64  `json:"weight"`
	Types          []string `json:"types"`
	Abilities      []string `json:"abilities"`
	BaseExperience int      `json:"base_experience"`
	SpriteURL      *string  `json:"sprite_url"`
	Description    *string  `json:"description"`
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
	TotalCount   int  `json:"total_count"`
	CurrentCount int  `json:"current_count"`
}

type Page struct {
	Pokemon    []Pokemon  `json:"pokemon"`
	Pagination Pagination `json:"pagination"`
}

// Service assembles catalog entries from PokeAPI.
type Service struct {
	src  Source
	lore LoreSource

	DefaultLimit int
	MaxLimit     int
	// Fanout bounds concurrent detail fetches for one page.
	Fanout int
}

// NewService returns a service; lore may be nil.
func NewService(src Source, lore LoreSource) *Service {
	return &Service{src: src, lore: lore, DefaultLimit: 12, MaxLimit: 50, Fanout: 6}
}

// displayName title-cases a PokeAPI name. A Caser keeps state, so each call
// builds its own.
func displayName(name string) string {
	return cases.Title(language.English).String(name)
}

// Lookup returns one entry with its description.
func (s *Service) Lookup(ctx context.Context, name string) (Pokemon, error) {
	p, err := s.src.Pokemon(ctx, name)
	if err != nil {
		return Pokemon{}, err
	}
	out := Pokemon{
		ID:             p.ID,
		Name:           displayName(p.Name),
		Height:         float64(p.Height) / 10,
		Weight:         float64(p.Weight) / 10,
		Types:          p.TypeNames(),
		Abilities:      p.AbilityNames(),
		BaseExperience: p.BaseExperience,
	}
	if p.Sprites.FrontDefault != "" {
		sprite := p.Sprites.FrontDefault
		out.SpriteURL = &sprite
	}
	if desc := s.describe(ctx, p); desc != "" {
		out.Description = &desc
	}
	return out, nil
}

func (s *Service) describe(ctx context.Context, p pokeapi.Pokemon) string {
	sp, err := s.src.Species(ctx, p.ID)
	if err == nil {
		if text := sp.EnglishFlavor(); text != "" {
			return text
		}
	} else {
		logging.Warn("species lookup failed", logging.Fields{"id": p.ID, "error": err.Error()})
	}
	if s.lore == nil {
		return ""
	}
	text, err := s.lore.Lore(ctx, p.Name)
	if err != nil {
		return ""
	}
	return text
}

// Page loads one page of entries. Entries whose details cannot be loaded are
// left out; the remaining ones keep list order.
func (s *Service) Page(ctx context.Context, page, limit int) (Page, error) {
	page, limit = s.clamp(page, limit)
	offset := (page - 1) * limit

	list, err := s.src.List(ctx, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list pokemon: %w", err)
	}

	slots := make([]*Pokemon, len(list.Results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Fanout))
	for i, r := range list.Results {
		i, name := i, r.Name
		g.Go(func() error {
			p, err := s.Lookup(gctx, name)
			if err != nil {
				logging.Warn("skipping pokemon", logging.Fields{"name": name, "error": err.Error()})
				return nil
			}
			slots[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	out := Page{Pokemon: []Pokemon{}}
	for _, p := range slots {
		if p != nil {
			out.Pokemon = append(out.Pokemon, *p)
		}
	}
	out.Pagination = Pagination{
		CurrentPage:  offset/limit + 1,
		TotalPages:   (list.Count + limit - 1) / limit,
		HasNext:      list.Next != nil,
		HasPrevious:  list.Previous != nil,
		TotalCount:   list.Count,
		CurrentCount: len(out.Pokemon),
	}
	return out, nil
}

func (s *Service) clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.DefaultLimit
	}
	if limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return page, limit
}

// Handler exposes the service over gin.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the catalog endpoints under api.
func (h *Handler) Routes(api gin.IRoutes) {
	api.GET("/pokemon", h.List)
	api.GET("/pokemon/:name", h.Detail)
	api.GET("/search", h.Search)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func (h *Handler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", h.svc.DefaultLimit)

	out, err := h.svc.Page(c.Request.Context(), page, limit)
	if err != nil {
		logging.Error("failed to fetch pokemon list", err, logging.Fields{"page": page, "limit": limit})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Pokemon list"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Detail(c *gin.Context) {
	name := c.Param("name")
	p, err := h.svc.Lookup(c.Request.Context(), name)
	if errors.Is(err, pokeapi.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pokemon not found"})
		return
	}
	if err != nil {
		logging.Error("failed to fetch pokemon details", err, logging.Fields{"name": name})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Pokemon details"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Search(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}
	p, err := h.svc.Lookup(c.Request.Context(), q)
	if errors.Is(err, pokeapi.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"found": false, "message": fmt.Sprintf("Pokemon %q not found", q)})
		return
	}
	if err != nil {
		logging.Error("search failed", err, logging.Fields{"q": q})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pokemon": p, "found": true})
}
