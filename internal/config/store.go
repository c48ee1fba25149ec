package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"fwdctl/pkg/logging"

	_ "modernc.org/sqlite"
)

// Store persists configurations and their last-known running state in SQLite.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// DefaultPath returns the default database location under the user's home.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "fwdctl", "fwdctl.db"), nil
}

// OpenStore opens (and if necessary creates) the database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Debug("ConfigStore", "Opened configuration store at %s", path)
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT NOT NULL,
		namespace TEXT NOT NULL,
		local_port INTEGER NOT NULL,
		remote_port INTEGER NOT NULL,
		context TEXT NOT NULL,
		workload_type TEXT NOT NULL,
		protocol TEXT NOT NULL,
		remote_address TEXT NOT NULL DEFAULT '',
		local_address TEXT NOT NULL DEFAULT '127.0.0.1',
		alias TEXT NOT NULL DEFAULT '',
		domain_enabled INTEGER NOT NULL DEFAULT 0,
		kubeconfig TEXT NOT NULL DEFAULT '',
		target TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS config_states (
		config_id INTEGER PRIMARY KEY,
		is_running INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (config_id) REFERENCES configs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_configs_context ON configs(context);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const configColumns = `id, service, namespace, local_port, remote_port, context,
	workload_type, protocol, remote_address, local_address, alias,
	domain_enabled, kubeconfig, target`

func scanConfig(row interface{ Scan(...any) error }) (Config, error) {
	var c Config
	var domainEnabled int
	err := row.Scan(&c.ID, &c.Service, &c.Namespace, &c.LocalPort, &c.RemotePort,
		&c.Context, &c.WorkloadType, &c.Protocol, &c.RemoteAddress, &c.LocalAddress,
		&c.Alias, &domainEnabled, &c.Kubeconfig, &c.Target)
	c.DomainEnabled = domainEnabled != 0
	return c, err
}

// GetAll returns all configurations ordered by id.
func (s *Store) GetAll() ([]Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM configs ORDER BY id", configColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// Get returns a single configuration by id.
func (s *Store) Get(id int64) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(fmt.Sprintf("SELECT %s FROM configs WHERE id = ?", configColumns), id)
	c, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return Config{}, fmt.Errorf("configuration %d not found", id)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to get config %d: %w", id, err)
	}
	return c, nil
}

// Insert stores a new configuration and assigns its ID.
func (s *Store) Insert(c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO configs (service, namespace, local_port, remote_port, context,
			workload_type, protocol, remote_address, local_address, alias,
			domain_enabled, kubeconfig, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Service, c.Namespace, c.LocalPort, c.RemotePort, c.Context,
		c.WorkloadType, c.Protocol, c.RemoteAddress, c.LocalAddress, c.Alias,
		boolToInt(c.DomainEnabled), c.Kubeconfig, c.Target)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	c.ID = id
	return nil
}

// Update replaces an existing configuration.
func (s *Store) Update(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE configs SET service = ?, namespace = ?, local_port = ?, remote_port = ?,
			context = ?, workload_type = ?, protocol = ?, remote_address = ?,
			local_address = ?, alias = ?, domain_enabled = ?, kubeconfig = ?, target = ?
		WHERE id = ?`,
		c.Service, c.Namespace, c.LocalPort, c.RemotePort, c.Context,
		c.WorkloadType, c.Protocol, c.RemoteAddress, c.LocalAddress, c.Alias,
		boolToInt(c.DomainEnabled), c.Kubeconfig, c.Target, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update config %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("configuration %d not found", c.ID)
	}
	return nil
}

// Delete removes a configuration and its running-state row in one transaction.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM config_states WHERE config_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete state for config %d: %w", id, err)
	}
	res, err := tx.Exec("DELETE FROM configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete config %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("configuration %d not found", id)
	}
	return tx.Commit()
}

// SetRunning records the last confirmed running state for a configuration.
func (s *Store) SetRunning(id int64, running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO config_states (config_id, is_running) VALUES (?, ?)
		ON CONFLICT(config_id) DO UPDATE SET is_running = excluded.is_running`,
		id, boolToInt(running))
	if err != nil {
		return fmt.Errorf("failed to persist running state for config %d: %w", id, err)
	}
	return nil
}

// GetStates returns the persisted running flags keyed by config id.
func (s *Store) GetStates() (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT config_id, is_running FROM config_states")
	if err != nil {
		return nil, fmt.Errorf("failed to query config states: %w", err)
	}
	defer rows.Close()

	states := make(map[int64]bool)
	for rows.Next() {
		var id int64
		var running int
		if err := rows.Scan(&id, &running); err != nil {
			return nil, fmt.Errorf("failed to scan config state: %w", err)
		}
		states[id] = running != 0
	}
	return states, rows.Err()
}

// Contexts returns the distinct cluster contexts referenced by configurations,
// sorted for stable output.
func (s *Store) Contexts() ([]string, error) {
	configs, err := s.GetAll()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var contexts []string
	for _, c := range configs {
		if _, ok := seen[c.Context]; !ok {
			seen[c.Context] = struct{}{}
			contexts = append(contexts, c.Context)
		}
	}
	sort.Strings(contexts)
	return contexts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
