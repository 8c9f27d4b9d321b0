package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"connect4engine/internal/models"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Board    BoardConfig
	AI       AIConfig
	Game     GameConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type BoardConfig struct {
	Rows int
	Cols int
}

type AIConfig struct {
	DepthEasy   int
	DepthMedium int
	DepthHard   int
	MaxDepth    int
	// Player is the colour the bot plays when a game does not name one.
	Player models.PlayerColor
	// AnalyzeTimeout bounds one stateless analysis, in seconds. Zero disables it.
	AnalyzeTimeout int
}

type GameConfig struct {
	// IdleTimeout in seconds; idle sessions are abandoned. Zero disables it.
	IdleTimeout int
}

type DatabaseConfig struct {
	DatabaseURL string
}

// RedisConfig points at the shared cache for stateless analysis results.
type RedisConfig struct {
	URL      string
	Password string
	// TTL in seconds for cached results.
	TTL int
}

type KafkaConfig struct {
	Brokers     []string
	TopicEvents string
	GroupID     string
	Username    string
	Password    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Board: BoardConfig{
			Rows: getEnvAsInt("BOARD_ROWS", 6),
			Cols: getEnvAsInt("BOARD_COLS", 7),
		},
		AI: AIConfig{
			DepthEasy:      getEnvAsInt("AI_DEPTH_EASY", 2),
			DepthMedium:    getEnvAsInt("AI_DEPTH_MEDIUM", 4),
			DepthHard:      getEnvAsInt("AI_DEPTH_HARD", 6),
			MaxDepth:       getEnvAsInt("AI_MAX_DEPTH", 10),
			Player:         models.PlayerColor(getEnv("AI_PLAYER", string(models.ColorYellow))),
			AnalyzeTimeout: getEnvAsInt("AI_ANALYZE_TIMEOUT", 10),
		},
		Game: GameConfig{
			IdleTimeout: getEnvAsInt("GAME_IDLE_TIMEOUT", 1800),
		},
		Database: DatabaseConfig{
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(getEnv("KAFKA_BROKERS", "")),
			TopicEvents: getEnv("KAFKA_TOPIC_EVENTS", "game.events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "connect4-analytics"),
			Username:    getEnv("KAFKA_USERNAME", ""),
			Password:    getEnv("KAFKA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      getEnvAsInt("ANALYSIS_CACHE_TTL", 3600),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if !models.ValidDimensions(c.Board.Rows, c.Board.Cols) {
		return fmt.Errorf("board must be between %d and %d rows and columns, got %dx%d",
			models.MinSize, models.MaxSize, c.Board.Rows, c.Board.Cols)
	}
	for name, d := range map[string]int{
		"AI_DEPTH_EASY":   c.AI.DepthEasy,
		"AI_DEPTH_MEDIUM": c.AI.DepthMedium,
		"AI_DEPTH_HARD":   c.AI.DepthHard,
		"AI_MAX_DEPTH":    c.AI.MaxDepth,
	} {
		if d < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, d)
		}
	}
	if c.AI.AnalyzeTimeout < 0 {
		return fmt.Errorf("AI_ANALYZE_TIMEOUT must not be negative, got %d", c.AI.AnalyzeTimeout)
	}
	if !c.AI.Player.Cell().IsPlayer() {
		return fmt.Errorf("AI_PLAYER must be red or yellow, got %q", c.AI.Player)
	}
	return nil
}

// DepthFor maps a difficulty to a search depth, capped at AI.MaxDepth.
// Unknown difficulties search at the medium depth.
func (c *Config) DepthFor(d models.Difficulty) int {
	depth := c.AI.DepthMedium
	switch d {
	case models.DifficultyEasy:
		depth = c.AI.DepthEasy
	case models.DifficultyHard:
		depth = c.AI.DepthHard
	}
	return min(depth, c.AI.MaxDepth)
}

func (c *Config) HasDatabase() bool {
	return c.Database.DatabaseURL != ""
}

func (c *Config) HasKafka() bool {
	return len(c.Kafka.Brokers) > 0
}

func (c *Config) HasRedis() bool {
	return c.Redis.URL != ""
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DatabaseURL
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
