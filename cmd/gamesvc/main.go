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

	config "github.com/avvvet/gatortots-services/configs"
	"github.com/avvvet/gatortots-services/internal/auth"
	"github.com/avvvet/gatortots-services/internal/comm"
	mongodb "github.com/avvvet/gatortots-services/internal/db"
	"github.com/avvvet/gatortots-services/internal/gamesvc/archive"
	"github.com/avvvet/gatortots-services/internal/gamesvc/broker"
	"github.com/avvvet/gatortots-services/internal/gamesvc/db"
	handlers "github.com/avvvet/gatortots-services/internal/gamesvc/handlers"
	"github.com/avvvet/gatortots-services/internal/gamesvc/room"
	"github.com/avvvet/gatortots-services/internal/gamesvc/service"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
	nats "github.com/avvvet/gatortots-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	var settings config.GameSettings
	if err := config.ParseEnv(&settings); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(settings.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	userStore := store.NewUserStore(dbpool)
	userService := service.NewUserService(userStore)

	roomStore := store.NewRoomStore(dbpool)
	roomService := service.NewRoomService(roomStore)

	messageStore := store.NewMessageStore(dbpool)
	chatService := service.NewChatService(messageStore)

	// finished games journal, optional
	var opts []room.Option
	var results handlers.Results
	if settings.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(context.Background(), settings.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mdb.Client().Disconnect(context.Background())

		journal, err := archive.New(context.Background(), mdb, settings.ResultRetention)
		if err != nil {
			log.Fatalf("Failed to prepare game archive: %v", err)
		}
		opts = append(opts, room.WithArchiver(journal))
		results = journal
		log.Printf("game archive enabled on %s", mdb.Name())
	}

	// Connect to NATS
	n, err := nats.Connect(settings.NatsURL, settings.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init peer message broker, it also fans room events out to the sockets
	b := broker.NewBroker(n.Conn)
	manager := room.NewManager(roomStore, userService, b, room.Config{
		ChallengeWindow: settings.ChallengeWindow,
		DisconnectGrace: settings.DisconnectGrace,
	}, opts...)
	defer manager.Close()
	b.Rooms = manager
	b.Chat = chatService

	// subscribe to socket service
	sub, err := b.SubscribSocketService(n.Conn, comm.SocketSubject)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to queue %v", err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(settings.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(settings.RateLimit, 1*time.Minute))

	// Init handlers and routes
	tokenAuth := auth.New(settings.JWTSecret)
	h := handlers.NewHandler(tokenAuth, settings.Port, userService, roomService, chatService, manager, results)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + settings.Port,
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

	// drain lets in-flight socket events finish before the rooms stop
	if err := sub.Drain(); err != nil {
		log.Warnf("drain subscription: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
