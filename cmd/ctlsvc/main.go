package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/gatortots-services/configs"
	"github.com/avvvet/gatortots-services/internal/gamesvc/db"
	"github.com/avvvet/gatortots-services/internal/gamesvc/store"
)

const SERVICE_NAME = "ctl"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// idleRooms is the part of the room store the janitor needs.
type idleRooms interface {
	DeleteIdleRooms(ctx context.Context, idle time.Duration) ([]int64, error)
}

// The janitor removes rooms nobody sits in once they have been idle for
// ROOM_IDLE_TIMEOUT. Several instances may run, rows are claimed with
// SKIP LOCKED.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms := store.NewRoomStore(dbpool)
	log.Infof("room janitor every %s, idle after %s", settings.JanitorInterval, settings.RoomIdleTimeout)
	run(ctx, rooms, settings.JanitorInterval, settings.RoomIdleTimeout)
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func run(ctx context.Context, rooms idleRooms, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		sweep(ctx, rooms, idle)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, rooms idleRooms, idle time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := rooms.DeleteIdleRooms(ctx, idle)
	if err != nil {
		log.Errorf("DeleteIdleRooms error: %v", err)
		return
	}
	if len(deleted) > 0 {
		log.WithField("rooms", deleted).Infof("deleted %d idle rooms", len(deleted))
	}
}
