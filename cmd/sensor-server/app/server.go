package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"sensor-monitor-server/cmd/sensor-server/app/options"
	"sensor-monitor-server/internal/api/common/auth"
	"sensor-monitor-server/internal/api/reading"
	cache2 "sensor-monitor-server/internal/cache"
	db "sensor-monitor-server/internal/database"
	"sensor-monitor-server/internal/hub"
	"sensor-monitor-server/internal/relay"
)

type Server struct {
	app    *fiber.App
	db     *gorm.DB
	hub    *hub.Hub
	relay  *relay.MQTTRelay
	logger *zap.Logger
}

func NewServer(opts *options.Options, logger *zap.Logger) *Server {
	// readings store
	db, err := db.Connect()
	if err != nil {
		logger.Fatal("Unable to connect to the readings database", zap.Error(err))
	}

	repository, err := reading.NewReadingRepository(db)
	if err != nil {
		logger.Fatal("Unable to prepare the readings table", zap.Error(err))
	}

	cache, err := cache2.NewCache()
	if err != nil {
		logger.Fatal("Unable to init cache", zap.Error(err))
	}

	// live fan-out hub
	liveHub := hub.NewHub(logger.Named("hub"))

	// alert relay; a broker that is down only disables /api/alerta
	mqttRelay, err := relay.NewMQTTRelay(logger.Named("relay"))
	if err != nil {
		logger.Fatal("Unable to configure the alert relay", zap.Error(err))
	}

	authGuard, err := auth.FromEnv()
	if err != nil {
		logger.Fatal("Unable to configure bearer-token auth", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName: "Sensor Monitor Server",
		Prefork: false,
	})

	app.Use(cors.New())
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] [${ip}:${port}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	// reading
	readingLogger := logger.Named("reading")
	readingService := reading.NewReadingService(repository, liveHub, mqttRelay, cache, readingLogger)
	reading.Router(app.Group("/api"), readingService, authGuard, *opts.Mode, readingLogger)

	// live channel: server-push only, reads are used solely to detect close
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		sub := liveHub.Subscribe(conn)
		defer liveHub.Unsubscribe(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	// dashboard bundle with SPA fallback
	if *opts.StaticDir != "" {
		app.Static("/", *opts.StaticDir)
	}

	staticDir := *opts.StaticDir
	app.All("*", func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api") || staticDir == "" {
			errorMessage := fmt.Sprintf("Route '%s' does not exist in this API!", c.OriginalURL())

			return c.Status(fiber.StatusNotFound).JSON(&fiber.Map{
				"status":  "fail",
				"message": errorMessage,
			})
		}
		return c.SendFile(filepath.Join(staticDir, "index.html"))
	})

	return &Server{
		app:    app,
		db:     db,
		hub:    liveHub,
		relay:  mqttRelay,
		logger: logger,
	}
}

func (app *Server) Listen(port int, certFile, keyFile *string) error {
	app.logger.Info("Starting sensor monitor server ...")

	address := fmt.Sprintf(":%d", port)
	if certFile != nil && keyFile != nil {
		if *certFile != "" && *keyFile != "" {
			return app.app.ListenTLS(address, *certFile, *keyFile)
		}
	}
	return app.app.Listen(address)
}

func (app *Server) Shutdown(parentCtx context.Context) error {
	g, ctx := errgroup.WithContext(parentCtx)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	g.Go(func() error {
		if err := app.app.Shutdown(); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		app.hub.Close()
		// the relay may still be flushing an in-flight publish
		app.relay.Close()
		sqlDB, err := app.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func Run(opts *options.Options, logger *zap.Logger) error {
	apiServerError := make(chan error)

	server := NewServer(opts, logger)

	go func() {
		if err := server.Listen(*opts.Port, opts.CertFile, opts.KeyFile); err != nil && err != http.ErrServerClosed {
			logger.Error("server listen failed", zap.Error(err))
			apiServerError <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown server ...")

		ctx := context.Background()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("close server failed", zap.Error(err))
			return err
		}
	case err := <-apiServerError:
		return err
	}

	return nil
}
