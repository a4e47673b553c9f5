// Command migrate applies the Postgres schema.
//
//	migrate up
//	migrate down -steps 1
//	migrate status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	config "github.com/avvvet/gatortots-services/configs"
	"github.com/avvvet/gatortots-services/internal/gamesvc/db"
	"github.com/avvvet/gatortots-services/internal/gamesvc/migrations"
	log "github.com/sirupsen/logrus"
)

type settings struct {
	PostgresURL string `env:"POSTGRES_URL,required,notEmpty"`
}

func main() {
	config.LoadEnv("migrate")

	var s settings
	if err := config.ParseEnv(&s); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fs := flag.NewFlagSet("down", flag.ExitOnError)
	steps := fs.Int("steps", 1, "migrations to revert (0 = all)")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down [-steps n] | status")
		os.Exit(2)
	}
	cmd := os.Args[1]
	if cmd == "down" {
		fs.Parse(os.Args[2:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(s.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()

	m, err := migrations.New(pool)
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	switch cmd {
	case "up":
		done, err := m.Up(ctx)
		report("applied", done)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
	case "down":
		done, err := m.Down(ctx, *steps)
		report("reverted", done)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
	case "status":
		status, err := m.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		names := make([]string, 0, len(status))
		for name := range status {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := "pending"
			if status[name] {
				state = "applied"
			}
			fmt.Printf("%-30s %s\n", name, state)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
}

func report(verb string, names []string) {
	if len(names) == 0 {
		fmt.Printf("nothing %s\n", verb)
		return
	}
	for _, name := range names {
		fmt.Printf("%s %s\n", verb, name)
	}
}
