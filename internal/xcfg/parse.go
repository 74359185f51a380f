package xcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseFile reads and decodes one configuration file; the codec is picked by
// extension (.yaml/.yml or .toml). A missing or malformed file is fatal to
// the caller's pass.
func ParseFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml", "":
		return ParseYAML(data)
	}

	return Config{}, fmt.Errorf("unsupported config file format: %s", path)
}

// ParseYAML decodes a YAML configuration document.
func ParseYAML(data []byte) (Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseTOML decodes a TOML configuration document.
func ParseTOML(data []byte) (Config, error) {
	var cfg Config

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseFiles loads and merges several configuration files in order; later
// files override earlier ones during name resolution.
func ParseFiles(paths []string) (Config, error) {
	var merged Config

	for _, path := range paths {
		cfg, err := ParseFile(path)
		if err != nil {
			return Config{}, err
		}

		merged.Merge(cfg)
	}

	return merged, nil
}

func validate(cfg Config) error {
	for file, items := range cfg.Files {
		for i := range items {
			if err := items[i].validate(); err != nil {
				return fmt.Errorf("config for %s: %w", file, err)
			}
		}
	}

	return nil
}
