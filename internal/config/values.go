package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
)

var runnerKeys = map[string]valueKind{
	"verbosity": kindInt,
	"addopts":   kindString,
	"log_level": kindString,
}

var databaseKeys = map[string]valueKind{
	"engine":    kindString,
	"name":      kindString,
	"host":      kindString,
	"port":      kindInt,
	"user":      kindString,
	"password":  kindString,
	"sslmode":   kindString,
	"test.name": kindString,
}

// keyKind reports the value kind of a leaf key such as
// "runner.verbosity" or "databases.<alias>.port".
func keyKind(key string) (valueKind, bool) {
	parts := strings.SplitN(key, ".", 3)
	switch {
	case len(parts) == 2 && parts[0] == "runner":
		k, ok := runnerKeys[parts[1]]
		return k, ok
	case len(parts) == 3 && parts[0] == "databases" && parts[1] != "":
		k, ok := databaseKeys[parts[2]]
		return k, ok
	}
	return 0, false
}

// ParseValue converts a raw string into the typed value stored under key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKind(key)
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", kind)
	}
}

// GetValue looks up a dotted key in cfg.
func GetValue(cfg Config, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	parts := strings.SplitN(key, ".", 3)
	switch parts[0] {
	case "runner":
		if len(parts) == 1 {
			return cfg.Runner, true
		}
		return runnerValue(cfg.Runner, strings.Join(parts[1:], "."))
	case "databases":
		if len(parts) == 1 {
			return cfg.Databases, true
		}
		dbCfg, ok := cfg.Databases[parts[1]]
		if !ok {
			return nil, false
		}
		if len(parts) == 2 {
			return dbCfg, true
		}
		return databaseValue(dbCfg, parts[2])
	}
	return nil, false
}

func runnerValue(r RunnerConfig, field string) (any, bool) {
	switch field {
	case "verbosity":
		return r.Verbosity, true
	case "addopts":
		return r.Addopts, true
	case "log_level":
		return r.LogLevel, true
	}
	return nil, false
}

func databaseValue(d DatabaseConfig, field string) (any, bool) {
	switch field {
	case "engine":
		return d.Engine, true
	case "name":
		return d.Name, true
	case "host":
		return d.Host, true
	case "port":
		return d.Port, true
	case "user":
		return d.User, true
	case "password":
		return d.Password, true
	case "sslmode":
		return d.SSLMode, true
	case "test":
		return d.Test, true
	case "test.name":
		return d.Test.Name, true
	}
	return nil, false
}

// WriteValue sets key to value in the TOML file at path, creating the file
// and any intermediate tables as needed.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	if key == "" {
		return fmt.Errorf("config key is required")
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config %s: %w", path, err)
	}

	segments := strings.Split(key, ".")
	table := doc
	for i, seg := range segments[:len(segments)-1] {
		next, ok := table[seg]
		if !ok {
			child := map[string]any{}
			table[seg] = child
			table = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a table", strings.Join(segments[:i+1], "."))
		}
		table = child
	}
	table[segments[len(segments)-1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
