package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// GameSettings configures the game service (cmd/gamesvc) and the room janitor.
type GameSettings struct {
	PostgresURL     string        `env:"POSTGRES_URL,required,notEmpty"`
	NatsURL         string        `env:"NATS_URL" envDefault:"nats://localhost:4224"`
	NatsToken       string        `env:"NATS_TOKEN"`
	MongoURI        string        `env:"MONGODB_URI"`
	Port            string        `env:"GAME_SERVICE_PORT" envDefault:"8001"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"120"`
	JWTSecret       string        `env:"JWT_SECRET_KEY,required,notEmpty"`
	ChallengeWindow time.Duration `env:"CHALLENGE_WINDOW" envDefault:"15s"`
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE" envDefault:"10s"`
	RoomIdleTimeout time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"30m"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"1m"`
	ResultRetention time.Duration `env:"RESULT_RETENTION" envDefault:"2160h"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// SocketSettings configures the websocket gateway (cmd/socketsvc).
type SocketSettings struct {
	NatsURL        string   `env:"NATS_URL" envDefault:"nats://localhost:4224"`
	NatsToken      string   `env:"NATS_TOKEN"`
	Port           string   `env:"SOCKET_SERVICE_PORT" envDefault:"8002"`
	RateLimit      int      `env:"RATE_LIMIT" envDefault:"120"`
	JWTSecret      string   `env:"JWT_SECRET_KEY,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
