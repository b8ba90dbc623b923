package internal

import "time"

// Config is loaded from the environment in cmd. Every field without a
// default is required so a misconfigured deployment fails at boot, not
// mid-traffic.
type Config struct {
	Host string `env:"HOST,required=true"`
	Port int    `env:"PORT,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	RedisAddr     string `env:"REDIS_ADDR,required=true"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	RewardQueueSize      int           `env:"REWARD_QUEUE_SIZE,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`

	GlobalRoomName string `env:"GLOBAL_ROOM_NAME,default=global"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
}
