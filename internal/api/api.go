package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/sportshub/internal/calendar"
	"github.com/pfrederiksen/sportshub/internal/event"
	"github.com/pfrederiksen/sportshub/internal/logger"
	"github.com/pfrederiksen/sportshub/internal/storage"
)

// Reader is the read side of the storage gateway.
type Reader interface {
	All(ctx context.Context) ([]event.Event, error)
	Active(ctx context.Context) ([]event.Event, error)
	ByID(ctx context.Context, id uint) (*event.Event, error)
	BySport(ctx context.Context, sport string) ([]event.Event, error)
	ByHome(ctx context.Context, team string) ([]event.Event, error)
	ByAway(ctx context.Context, team string) ([]event.Event, error)
	ByTeam(ctx context.Context, team string) ([]event.Event, error)
	ByLeague(ctx context.Context, league string) ([]event.Event, error)
	Leagues(ctx context.Context) ([]storage.LeagueCountry, error)
	Sports(ctx context.Context) ([]string, error)
}

// Options configures the router.
type Options struct {
	Silent bool
	Pprof  bool
	Now    func() time.Time
}

// Handler serves events as JSON.
type Handler struct {
	store Reader
	now   func() time.Time
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(store Reader, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if !opts.Silent {
		r.Use(gin.LoggerWithWriter(logger.Default().Writer()))
	}
	if opts.Pprof {
		pprof.Register(r)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	h := &Handler{store: store, now: now}

	r.GET("/", h.All)
	r.GET("/all", h.All)
	r.GET("/active", h.Active)
	r.GET("/id/:id", h.ByID)
	r.GET("/sport/:sport", h.BySport)
	r.GET("/team/:side", h.ByTeam)
	r.GET("/team/:side/:name", h.ByTeamSide)
	r.GET("/league/:league", h.ByLeague)
	r.GET("/info/leagues", h.Leagues)
	r.GET("/info/sports", h.Sports)
	r.GET("/calendar.ics", h.Calendar)
	return r
}

func (h *Handler) respond(c *gin.Context, events []event.Event, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) fail(c *gin.Context, err error) {
	logger.Error("API request failed", logger.Fields{"path": c.Request.URL.Path}, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// All handles GET /all
func (h *Handler) All(c *gin.Context) {
	events, err := h.store.All(c.Request.Context())
	h.respond(c, events, err)
}

// Active handles GET /active: events that already have stream links.
func (h *Handler) Active(c *gin.Context) {
	events, err := h.store.Active(c.Request.Context())
	h.respond(c, events, err)
}

// ByID handles GET /id/:id and returns a zero or one element array.
func (h *Handler) ByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	evt, err := h.store.ByID(c.Request.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		h.respond(c, nil, nil)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, []event.Event{*evt}, nil)
}

func (h *Handler) BySport(c *gin.Context) {
	events, err := h.store.BySport(c.Request.Context(), c.Param("sport"))
	h.respond(c, events, err)
}

// ByTeam handles GET /team/:name for either side.
func (h *Handler) ByTeam(c *gin.Context) {
	events, err := h.store.ByTeam(c.Request.Context(), c.Param("side"))
	h.respond(c, events, err)
}

// ByTeamSide handles GET /team/{home|away|either}/:name
func (h *Handler) ByTeamSide(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	var (
		events []event.Event
		err    error
	)
	switch c.Param("side") {
	case "home":
		events, err = h.store.ByHome(ctx, name)
	case "away":
		events, err = h.store.ByAway(ctx, name)
	case "either":
		events, err = h.store.ByTeam(ctx, name)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be home, away or either"})
		return
	}
	h.respond(c, events, err)
}

func (h *Handler) ByLeague(c *gin.Context) {
	events, err := h.store.ByLeague(c.Request.Context(), c.Param("league"))
	h.respond(c, events, err)
}

func (h *Handler) Leagues(c *gin.Context) {
	leagues, err := h.store.Leagues(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if leagues == nil {
		leagues = []storage.LeagueCountry{}
	}
	c.JSON(http.StatusOK, leagues)
}

func (h *Handler) Sports(c *gin.Context) {
	sports, err := h.store.Sports(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if sports == nil {
		sports = []string{}
	}
	c.JSON(http.StatusOK, sports)
}

// Calendar handles GET /calendar.ics with the events that have streams.
func (h *Handler) Calendar(c *gin.Context) {
	events, err := h.store.Active(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.GenerateICS(events, h.now())))
}
