package dix

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Name         string            `toml:"name"`
	DotaddrDB    DotaddrDB         `toml:"dotaddr_db"`
	DotaddrBatch DotaddrBatch      `toml:"dotaddr_batch"`
	DotaddrFE    DotaddrFE         `toml:"dotaddr_fe"`
	Networks     map[string]uint16 `toml:"networks"`
}

type DotaddrDB struct {
	Type     string `toml:"type"`
	Name     string `toml:"name"`
	IP       string `toml:"ip"`
	User     string `toml:"user"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	// Path is the database file when Type is sqlite3.
	Path string `toml:"path"`
}

type Duration time.Duration

type DotaddrBatch struct {
	BatchSize    int      `toml:"batch_size"`
	MaxWorkers   int      `toml:"max_workers"`
	FlushTimeout Duration `toml:"flush_timeout"`
}

type DotaddrFE struct {
	IP   string `toml:"ip"`
	Port int    `toml:"port"`
}

func DefaultConfig() Config {
	return Config{
		Name: "dotaddr",
		DotaddrDB: DotaddrDB{
			Type: "sqlite3",
			Path: "dotaddr.db",
		},
		DotaddrBatch: DotaddrBatch{
			BatchSize:    100,
			MaxWorkers:   4,
			FlushTimeout: Duration(30 * time.Second),
		},
		DotaddrFE: DotaddrFE{
			IP:   "127.0.0.1",
			Port: 8080,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig and registers its networks.
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	for name, id := range config.Networks {
		if err := RegisterNetwork(name, id); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return &config, nil
}

func (c Config) Validate() error {
	switch c.DotaddrDB.Type {
	case "postgres":
		if c.DotaddrDB.IP == "" || c.DotaddrDB.Name == "" {
			return fmt.Errorf("postgres database needs ip and name")
		}
	case "sqlite3":
		if c.DotaddrDB.Path == "" {
			return fmt.Errorf("sqlite3 database needs a path")
		}
	default:
		return fmt.Errorf("unsupported database type %q", c.DotaddrDB.Type)
	}
	if c.DotaddrBatch.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.DotaddrBatch.MaxWorkers)
	}
	if c.DotaddrBatch.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.DotaddrBatch.BatchSize)
	}
	return nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(x)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func DBUrl(config Config) string {
	if config.DotaddrDB.Type == "sqlite3" {
		return config.DotaddrDB.Path
	}
	return fmt.Sprintf(`%s://%s:%s@%s:%d/%s?sslmode=disable`,
		config.DotaddrDB.Type,
		config.DotaddrDB.User,
		config.DotaddrDB.Password,
		config.DotaddrDB.IP,
		config.DotaddrDB.Port,
		config.DotaddrDB.Name,
	)
}

func DBUrlSecure(config Config) string {
	if config.DotaddrDB.Type == "sqlite3" {
		return config.DotaddrDB.Path
	}
	return fmt.Sprintf(`%s://%s:******@%s:%d/%s?sslmode=disable`,
		config.DotaddrDB.Type,
		config.DotaddrDB.User,
		config.DotaddrDB.IP,
		config.DotaddrDB.Port,
		config.DotaddrDB.Name,
	)
}
