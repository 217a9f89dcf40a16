// Package arena serves the battle endpoints: roster, combat resolution,
// computer move selection, scene rendering and result history.
package arena

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pokebattle/pkg/battle"
	"pokebattle/pkg/history"
	"pokebattle/pkg/logging"
	"pokebattle/pkg/pokeapi"
	"pokebattle/pkg/render"
)

// Results stores finished battles.
type Results interface {
	Save(ctx context.Context, rec history.Record) (history.Record, error)
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

type Handler struct {
	roster  battle.RosterSource
	combat  battle.CombatService
	scenes  render.SceneFunc
	results Results
}

// NewHandler wires the endpoints. scenes and results may be nil, in which
// case their endpoints answer 503.
func NewHandler(roster battle.RosterSource, combat battle.CombatService, scenes render.SceneFunc, results Results) *Handler {
	return &Handler{roster: roster, combat: combat, scenes: scenes, results: results}
}

// Routes mounts the endpoints under api.
func (h *Handler) Routes(api gin.IRoutes) {
	api.GET("/pokemon-list", h.List)
	api.GET("/battle/pokemon/:name", h.Pokemon)
	api.POST("/battle/simulate", h.Simulate)
	api.POST("/battle/computer-action", h.ComputerAction)
	api.POST("/battle/render", h.Render)
	api.POST("/battle/results", h.SaveResult)
	api.GET("/battle/results", h.RecentResults)
}

func (h *Handler) List(c *gin.Context) {
	names, err := h.roster.Names(c.Request.Context())
	if err != nil {
		logging.Error("failed to list roster", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Pokemon list"})
		return
	}
	c.JSON(http.StatusOK, battle.RosterResponse{Pokemon: names})
}

func (h *Handler) Pokemon(c *gin.Context) {
	name := c.Param("name")
	p, err := h.roster.Lookup(c.Request.Context(), name)
	if errors.Is(err, pokeapi.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pokemon not found"})
		return
	}
	if err != nil {
		logging.Error("failed to fetch battle pokemon", err, logging.Fields{"name": name})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Pokemon details"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func validCombatant(role string, cb battle.Combatant) error {
	if cb.MaxHP <= 0 {
		return fmt.Errorf("%s max_hp must be positive", role)
	}
	if cb.CurrentHP < 0 || cb.CurrentHP > cb.MaxHP {
		return fmt.Errorf("%s current_hp out of range", role)
	}
	return nil
}

func (h *Handler) Simulate(c *gin.Context) {
	var req battle.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Action.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown action %q", req.Action)})
		return
	}
	for _, err := range []error{validCombatant("attacker", req.Attacker), validCombatant("defender", req.Defender)} {
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := h.combat.Simulate(c.Request.Context(), req.Action, req.Attacker, req.Defender)
	if err != nil {
		logging.Error("simulate failed", err, logging.Fields{"action": string(req.Action)})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Simulation failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ComputerAction(c *gin.Context) {
	var req battle.ComputerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validCombatant("computer_pokemon", req.Computer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	choice, err := h.combat.ChooseAction(c.Request.Context(), req.Computer, req.Player)
	if err != nil {
		logging.Error("computer action failed", err, logging.Fields{"computer": req.Computer.Name})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to choose action"})
		return
	}
	c.JSON(http.StatusOK, choice)
}

func (h *Handler) Render(c *gin.Context) {
	if h.scenes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Rendering disabled"})
		return
	}
	var s battle.Session
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buf, err := h.scenes(c.Request.Context(), s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode image"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf)
}

func (h *Handler) SaveResult(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History disabled"})
		return
	}
	var rec history.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.results.Save(c.Request.Context(), rec)
	if errors.Is(err, history.ErrInvalidRecord) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logging.Error("failed to save battle", err, logging.Fields{"winner": rec.Winner})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result"})
		return
	}
	logging.Info("battle recorded", logging.Fields{"id": saved.ID, "winner": saved.Winner, "turns": saved.Turns})
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) RecentResults(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "History disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	recs, err := h.results.Recent(c.Request.Context(), min(max(limit, 1), 100))
	if err != nil {
		logging.Error("failed to load battles", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load results"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": recs})
}
