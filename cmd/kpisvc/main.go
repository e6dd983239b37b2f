package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/nats-io/nats.go"

	config "github.com/avvvet/kpi-services/configs"
	"github.com/avvvet/kpi-services/internal/kpisvc/bootstrap"
	"github.com/avvvet/kpi-services/internal/kpisvc/broker"
	svcconfig "github.com/avvvet/kpi-services/internal/kpisvc/config"
	"github.com/avvvet/kpi-services/internal/kpisvc/handlers"
	"github.com/avvvet/kpi-services/internal/kpisvc/service"
	"github.com/avvvet/kpi-services/internal/kpisvc/ws"
	natscli "github.com/avvvet/kpi-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "kpi"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service")
}

func main() {
	cfg := svcconfig.Load()

	stores, err := bootstrap.OpenStores(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	if err := stores.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	// dashboards connected to this instance
	hub := ws.NewHub(allowOrigins(cfg.CORSOrigins))
	defer hub.Close()

	var publisher service.EventPublisher = hub
	var sub *nats.Subscription
	if cfg.NatsURL != "" {
		n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		// events travel through NATS so every instance's dashboards see them
		b := broker.NewBroker(n.Conn, instanceId)
		sub, err = b.SubscribeCardEvents(broker.CardEventsTopic, hub.RelayCardEvent)
		if err != nil {
			log.Fatalf("Error: unable to subscribe to %s %v", broker.CardEventsTopic, err)
		}
		publisher = b
	}

	cardService := service.NewKpiCardService(stores.Cards, publisher)
	preferenceService := service.NewPreferenceService(stores.Preferences)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cardService, preferenceService, hub)
	h.SetInstance(cfg.Port, instanceId)
	h.InitAuth(cfg.JWTSecretKey)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if sub != nil {
		sub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
		return
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func allowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}
