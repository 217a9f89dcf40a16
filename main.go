package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pokebattle/pkg/arena"
	"pokebattle/pkg/catalog"
	"pokebattle/pkg/combatmath"
	"pokebattle/pkg/config"
	"pokebattle/pkg/history"
	"pokebattle/pkg/logging"
	"pokebattle/pkg/pokeapi"
	"pokebattle/pkg/render"
	"pokebattle/pkg/scraper"
	"pokebattle/pkg/utils"
)

func main() {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", err, nil)
	}
	defer logging.L().Sync()

	tuning, err := combatmath.LoadTuning(cfg.CombatTuning)
	if err != nil {
		logging.Fatal("failed to load combat tuning", err, logging.Fields{"path": cfg.CombatTuning})
	}

	ttl := time.Duration(0)
	if cfg.CacheEnabled {
		ttl = cfg.CacheExpiry
	}
	api := pokeapi.New(cfg.PokeAPIBaseURL, cfg.RequestTimeout, ttl)

	var lore catalog.LoreSource
	if cfg.LoreEnabled && cfg.LoreBaseURL != "" {
		lore = scraper.New(cfg.LoreBaseURL, cfg.RequestTimeout)
	}
	dex := catalog.NewService(api, lore)
	dex.DefaultLimit = cfg.DefaultPageSize
	dex.MaxLimit = cfg.MaxPageSize

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := combatmath.New(tuning, combatmath.NewRand(seed))

	var results arena.Results
	store, err := history.Open(cfg.DBPath)
	if err != nil {
		logging.Error("battle history disabled", err, logging.Fields{"db": cfg.DBPath})
	} else {
		defer store.Close()
		results = store
	}

	scenes := render.New(utils.NewImageCache(cfg.RequestTimeout), cfg.FontPath)
	scenes.Background = cfg.BackgroundPath

	r := gin.Default()

	// Global Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Root Endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "online",
			"service": "Pokemon Battle Service",
			"version": "1.0.0",
		})
	})

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	// API Group
	g := r.Group("/api")
	{
		catalog.NewHandler(dex).Routes(g)
		arena.NewHandler(arena.NewRoster(api, cfg.RosterSize), engine, scenes.PNG, results).Routes(g)
	}

	srv := &http.Server{Addr: "0.0.0.0:" + cfg.Port, Handler: r}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		logging.Error("failed to start server", err, logging.Fields{"addr": srv.Addr})
		return
	}
	logging.Info("service starting", logging.Fields{"port": cfg.Port, "pokeapi": cfg.PokeAPIBaseURL, "cache_ttl": ttl.String()})
	if err := serve(ctx, srv, ln, 5*time.Second); err != nil {
		logging.Error("server stopped with error", err, nil)
		return
	}
	logging.Info("service stopped", nil)
}

// serve runs srv on ln until ctx is done, then shuts down within grace.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		logging.Error("shutdown did not complete", err, nil)
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
