package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Room id collision policies for "create" with an explicit roomId.
const (
	CollisionReuse  = "reuse"
	CollisionReject = "reject"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8080" validate:"min=1,max=65535"`

	WsPingInterval      time.Duration `env:"WS_PING_INTERVAL"       envDefault:"20s"     validate:"gt=0"`
	WsPongTimeout       time.Duration `env:"WS_PONG_TIMEOUT"        envDefault:"20s"     validate:"gt=0"`
	WsWriteWait         time.Duration `env:"WS_WRITE_WAIT"          envDefault:"10s"     validate:"gt=0"`
	WsMaxMessageBytes   int64         `env:"WS_MAX_MESSAGE_BYTES"   envDefault:"1048576" validate:"min=512"`
	WsSendQueue         int           `env:"WS_SEND_QUEUE"          envDefault:"256"     validate:"min=1"`
	WsMessagesPerSecond float64       `env:"WS_MESSAGES_PER_SECOND" envDefault:"0"       validate:"min=0"`
	WsMessageBurst      int           `env:"WS_MESSAGE_BURST"       envDefault:"0"       validate:"min=0"`

	RoomIDDigits    int    `env:"ROOM_ID_DIGITS"    envDefault:"7"     validate:"min=4,max=12"`
	RoomIDCollision string `env:"ROOM_ID_COLLISION" envDefault:"reuse" validate:"oneof=reuse reject"`

	TurnSecretB64 string        `env:"TURN_SECRET_B64"`
	TurnURIs      []string      `env:"TURN_URIS"  envDefault:"turns:turn.example.com:443?transport=tcp,turn:turn.example.com:3478?transport=udp" envSeparator:","`
	TurnTTL       time.Duration `env:"TURN_TTL"   envDefault:"10m" validate:"gt=0"`

	EventsEnabled      bool   `env:"EVENTS_ENABLED"       envDefault:"false"`
	RedisHost          string `env:"REDIS_HOST"           envDefault:"localhost"`
	RedisPort          uint16 `env:"REDIS_PORT"           envDefault:"6379" validate:"min=1,max=65535"`
	EventsStream       string `env:"EVENTS_STREAM"        envDefault:"signal_events" validate:"required"`
	EventsStreamMaxLen int64  `env:"EVENTS_STREAM_MAXLEN" envDefault:"10000" validate:"min=0"`

	ArchiveEnabled   bool   `env:"ARCHIVE_ENABLED"   envDefault:"false"`
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"signal_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"signal_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"signal_db"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return Parse()
}

// Parse reads the process environment only; LoadConfig also merges .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}
	cfg.TurnURIs = trimEmpty(cfg.TurnURIs)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

func trimEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
