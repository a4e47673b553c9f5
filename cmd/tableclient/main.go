// Command tableclient plays Gator Tots from a terminal.
//
//	tableclient -socket ws://localhost:8002/v1/ws -token $JWT -room 42
//
// Commands: start, play <ids> <rank>, bs, say <text>, leave, quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/avvvet/gatortots-services/internal/roomclient"
	log "github.com/sirupsen/logrus"
)

func main() {
	socketURL := flag.String("socket", "ws://localhost:8002/v1/ws", "socket service url")
	token := flag.String("token", os.Getenv("GATORTOTS_TOKEN"), "jwt with user_id and username claims")
	room := flag.String("room", "", "room id")
	page := flag.String("page", "", "game page path, used when -room is empty (e.g. /games/42)")
	password := flag.String("password", "", "room password")
	flag.Parse()

	roomID, err := roomclient.RoomIDFromPath(*room, *page)
	if err != nil {
		log.Fatalf("room: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := roomclient.Dial(ctx, *socketURL, *token)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	c := roomclient.New(t, &terminal{out: os.Stdout})
	if err := c.Join(roomID, *password); err != nil {
		log.Fatalf("join: %v", err)
	}

	go func() {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("connection closed: %v", err)
		}
		stop()
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, err := execute(c, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if quit {
				return
			}
		}
	}
}

// execute runs one command line. quit is true once the player asked to stop.
func execute(c *roomclient.Client, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "start":
		return false, c.Start()
	case "play":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: play <id,id,...> <rank 1-13>")
		}
		cards, err := parseCards(fields[1])
		if err != nil {
			return false, err
		}
		rank, err := strconv.Atoi(fields[2])
		if err != nil {
			return false, fmt.Errorf("rank %q: %w", fields[2], err)
		}
		return false, c.Play(cards, rank)
	case "bs":
		return false, c.CallBS()
	case "say":
		return false, c.Say(strings.TrimSpace(strings.TrimPrefix(line, "say")))
	case "leave":
		return false, c.Leave()
	case "quit", "exit":
		return true, c.Leave()
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseCards(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	cards := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", p, err)
		}
		cards = append(cards, id)
	}
	return cards, nil
}

