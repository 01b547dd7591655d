package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes the generation command.
//
//	command: python3
//	args: [scripts/generate.py]
//	env: {MODEL_PATH: ./models/small}
type Config struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Dir         string            `yaml:"dir" json:"dir"`
	Environment map[string]string `yaml:"env" json:"env"`
}

// LoadConfig reads a YAML or JSON command config. The format follows the
// file extension.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read command config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse command config %s: %w", path, err)
	}
	if cfg.Command == "" {
		return cfg, ErrNoCommand
	}
	return cfg, nil
}

// ParseCommandLine splits a command line on whitespace. Quoting is not
// supported; use a config file for arguments with spaces.
func ParseCommandLine(line string) (Config, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Config{}, ErrNoCommand
	}
	return Config{Command: fields[0], Args: fields[1:]}, nil
}
