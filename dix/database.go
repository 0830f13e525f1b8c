package dix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("address not found")

// Record is one address book entry.
type Record struct {
	Address   string    `json:"address"`
	Network   uint16    `json:"network"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

// AddressBook stores decoded addresses.
type AddressBook interface {
	CreateTable() error
	Save(ctx context.Context, records []Record) error
	Lookup(ctx context.Context, address string) (Record, error)
	LookupPublicKey(ctx context.Context, publicKey string) ([]Record, error)
	Ping() error
	GetStats() *MetricsStats
	Close() error
}

// DBPoolConfig contains the configuration for the database connection pool
type DBPoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
}

const (
	schemaName = "dotaddr"
	tableName  = "addresses"
)

type SQLDatabase struct {
	db      *sql.DB
	driver  string
	metrics *Metrics
	poolCfg DBPoolConfig
}

func DefaultDBPoolConfig() DBPoolConfig {
	return DBPoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// SQLitePoolConfig keeps a single connection: every connection to an
// in-memory sqlite database sees its own empty database.
func SQLitePoolConfig() DBPoolConfig {
	return DBPoolConfig{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// NewSQLDatabase opens the database described by config.
func NewSQLDatabase(config Config) (*SQLDatabase, error) {
	driver := config.DotaddrDB.Type
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database: %s", driver)
	}

	db, err := sql.Open(driver, DBUrl(config))
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", DBUrlSecure(config), err)
	}
	return NewSQLDatabaseWithDB(db, driver), nil
}

// NewSQLDatabaseWithDB wraps an open handle, driver is "postgres" or "sqlite3".
func NewSQLDatabaseWithDB(db *sql.DB, driver string) *SQLDatabase {
	poolCfg := DefaultDBPoolConfig()
	if driver == "sqlite3" {
		poolCfg = SQLitePoolConfig()
	}
	return NewSQLDatabaseWithPool(db, driver, poolCfg)
}

// NewSQLDatabaseWithPool creates a new Database instance with custom connection pool settings
func NewSQLDatabaseWithPool(db *sql.DB, driver string, poolCfg DBPoolConfig) *SQLDatabase {
	db.SetMaxOpenConns(poolCfg.MaxOpenConns)
	db.SetMaxIdleConns(poolCfg.MaxIdleConns)
	db.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)

	return &SQLDatabase{
		db:      db,
		driver:  driver,
		metrics: NewMetrics(driver),
		poolCfg: poolCfg,
	}
}

// TableName is schema qualified on postgres.
func (s *SQLDatabase) TableName() string {
	if s.driver == "postgres" {
		return schemaName + "." + tableName
	}
	return tableName
}

func (s *SQLDatabase) placeholder(i int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

func (s *SQLDatabase) Ping() error {
	return s.db.Ping()
}

func (s *SQLDatabase) GetStats() *MetricsStats {
	return s.metrics.GetStats()
}

func (s *SQLDatabase) CreateTable() error {
	var b strings.Builder
	if s.driver == "postgres" {
		fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s;\n", schemaName)
	}
	fmt.Fprintf(&b, `CREATE TABLE IF NOT EXISTS %[1]s (
  address    TEXT NOT NULL,
  network    INTEGER NOT NULL,
  public_key TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  CONSTRAINT %[2]s_pk PRIMARY KEY (address)
);
CREATE INDEX IF NOT EXISTS %[2]s_public_key_idx ON %[1]s (public_key);
`, s.TableName(), tableName)

	_, err := s.db.Exec(b.String())
	observeDB("create", err)
	if err != nil {
		log.Printf("sql %s", b.String())
		return fmt.Errorf("error creating %s table: %w", s.TableName(), err)
	}
	log.Printf("Ensured table %s exists", s.TableName())
	return nil
}

// Save inserts records in one transaction; addresses already stored are left untouched.
func (s *SQLDatabase) Save(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordLatency(start, len(records), err)
		observeDB("save", err)
	}()

	query := fmt.Sprintf(
		"INSERT INTO %s (address, network, public_key, created_at) VALUES (%s, %s, %s, %s) "+
			"ON CONFLICT (address) DO NOTHING",
		s.TableName(), s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error rolling back transaction: %v", rbErr)
			}
		}
	}()

	now := time.Now().UTC()
	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err = tx.ExecContext(ctx, query, r.Address, int(r.Network), strings.ToLower(r.PublicKey), createdAt); err != nil {
			return fmt.Errorf("error inserting %s: %w", r.Address, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// SaveInBatches splits records into chunks of size and saves each chunk.
func SaveInBatches(ctx context.Context, book AddressBook, records []Record, size int) error {
	if size <= 0 {
		size = len(records)
	}
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		if err := book.Save(ctx, records[start:end]); err != nil {
			return fmt.Errorf("error saving records %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *SQLDatabase) Lookup(ctx context.Context, address string) (Record, error) {
	start := time.Now()
	query := fmt.Sprintf(
		"SELECT address, network, public_key, created_at FROM %s WHERE address = %s",
		s.TableName(), s.placeholder(1))

	var r Record
	var network int
	err := s.db.QueryRowContext(ctx, query, address).Scan(&r.Address, &network, &r.PublicKey, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordLatency(start, 1, nil)
		observeDB("lookup", nil)
		return Record{}, ErrNotFound
	}
	s.metrics.RecordLatency(start, 1, err)
	observeDB("lookup", err)
	if err != nil {
		return Record{}, fmt.Errorf("error looking up %s: %w", address, err)
	}
	r.Network = uint16(network)
	return r, nil
}

// LookupPublicKey returns every stored address of a key, ordered by network.
func (s *SQLDatabase) LookupPublicKey(ctx context.Context, publicKey string) (records []Record, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordLatency(start, 1, err)
		observeDB("lookup_key", err)
	}()

	query := fmt.Sprintf(
		"SELECT address, network, public_key, created_at FROM %s WHERE public_key = %s ORDER BY network, address",
		s.TableName(), s.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, strings.ToLower(AddHex(publicKey)))
	if err != nil {
		return nil, fmt.Errorf("error querying public key %s: %w", publicKey, err)
	}
	defer rows.Close()

	records = make([]Record, 0)
	for rows.Next() {
		var r Record
		var network int
		if err = rows.Scan(&r.Address, &network, &r.PublicKey, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}
		r.Network = uint16(network)
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over records: %w", err)
	}
	return records, nil
}
