package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port string `mapstructure:"port"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Rabbit     RabbitConfig   `mapstructure:"rabbit"`
	Room       RoomConfig     `mapstructure:"room"`
}

// RoomConfig definition chat room runtime limits
type RoomConfig struct {
	// GlobalRoomCap max messages kept in memory per global room
	GlobalRoomCap int `mapstructure:"global_room_cap"`
	// UserCacheTTL how long a resolved display name stays cached
	UserCacheTTL time.Duration `mapstructure:"user_cache_ttl"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// RabbitConfig definition push queue setting
type RabbitConfig struct {
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
