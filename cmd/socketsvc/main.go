package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/gatortots-services/internal/auth"
	"github.com/avvvet/gatortots-services/internal/comm"
	"github.com/avvvet/gatortots-services/internal/nats"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/gatortots-services/configs"

	"github.com/avvvet/gatortots-services/internal/socketsvc/broker"
	"github.com/avvvet/gatortots-services/internal/socketsvc/handlers"
	"github.com/avvvet/gatortots-services/internal/socketsvc/routes"
	"github.com/avvvet/gatortots-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	var settings config.SocketSettings
	if err := config.ParseEnv(&settings); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect(settings.NatsURL, settings.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(settings.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(settings.RateLimit, 1*time.Minute))

	// Initialize websocket handler
	s := ws.NewWs()

	// Initialize broker, the websocket registry is injected for delivery
	b := broker.NewBroker(n.Conn, s)
	s.Broker = b // set broker reference for websocket handler logic

	// Initialize routes
	h := handlers.NewHandler(s, settings.Port, settings.AllowedOrigins)
	routes.SetRoutes(r, h, auth.New(settings.JWTSecret))

	// subscribe to game server
	sub, err := b.Subscribe(n.Conn, comm.GameSubject)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to queue %v", err)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:        ":" + settings.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
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

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
