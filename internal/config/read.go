package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"hddfand/internal/faults"
)

// ReadFile parses a configuration file into a flat map with lower-cased keys.
// TOML is used for .toml files; everything else is read as "key = value" lines.
func ReadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "config", "read", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return parseTOML(path, data)
	}
	return parseKeyValue(path, data)
}

func parseKeyValue(path string, data []byte) (map[string]string, error) {
	raw, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "config", "parse", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		values[normalizeKey(key)] = strings.TrimSpace(value)
	}
	return values, nil
}

func parseTOML(path string, data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "config", "parse", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		text, err := tomlString(value)
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfiguration, "config", "parse", fmt.Sprintf("%s: key %q", path, key), err)
		}
		values[normalizeKey(key)] = text
	}
	return values, nil
}

func tomlString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			text, err := tomlString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, " "), nil
	case map[string]any:
		return "", fmt.Errorf("tables are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
