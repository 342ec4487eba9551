package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"
	"github.com/surrealdb/surrealdb.go"

	"github.com/makerhub/makerhub/internal/api"
	"github.com/makerhub/makerhub/internal/config"
	"github.com/makerhub/makerhub/internal/dispatch"
	"github.com/makerhub/makerhub/internal/engine"
	"github.com/makerhub/makerhub/internal/logging"
	"github.com/makerhub/makerhub/internal/pubsub"
	"github.com/makerhub/makerhub/internal/python"
	"github.com/makerhub/makerhub/internal/storage"
	"github.com/makerhub/makerhub/internal/websocket"
)

// Server holds the dependencies for the instance server.
type Server struct {
	E          *echo.Echo
	DB         *surrealdb.DB
	Cfg        *config.Config
	bus        *pubsub.WatermillBridge
	bridge     *websocket.Bridge
	dispatcher *dispatch.Dispatcher
	router     *Router
	templates  *python.TemplateProvider
}

// New creates a new Server instance with every component wired up.
func New() *Server {
	// Load environment variables from .env file if it exists.
	if err := godotenv.Load(); err != nil {
		// We don't have slog configured yet, so we use the standard logger
		// here. This is acceptable as it's only for the initial setup.
		log.Println("No .env file found, relying on environment variables")
	}

	logging.New() // Initialize the structured logger
	cfg := config.New()

	var db *surrealdb.DB
	var store storage.InstanceStore
	switch cfg.Store {
	case config.StoreMemory:
		store = storage.NewMemoryStore()
		slog.Warn("Using in-memory instance store; state is lost on restart")
	default:
		var err error
		db, err = storage.NewDB(context.Background(), cfg)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		store = storage.NewSurrealStore(db)
	}

	templates, err := python.NewTemplateProvider(afero.NewOsFs(), cfg.ScriptTemplatePath)
	if err != nil {
		slog.Error("Failed to load script template", "error", err)
		os.Exit(1)
	}

	gateway := python.NewProcessGateway(cfg.PythonBin, nil, cfg.ScriptTimeout)
	runner := python.NewRunner(gateway, templates)
	eng := engine.NewEngine(store, runner)

	bus := pubsub.NewWatermillBridge()
	bridge := websocket.NewBridge(bus)
	dispatcher := dispatch.New(bridge.Send, dispatch.WithPacingInterval(cfg.PacingInterval))
	router := NewRouter(eng, dispatcher)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Validator = api.NewValidator()

	e.GET("/ws", bridge.Handler())
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		E:          e,
		DB:         db,
		Cfg:        cfg,
		bus:        bus,
		bridge:     bridge,
		dispatcher: dispatcher,
		router:     router,
		templates:  templates,
	}
}
