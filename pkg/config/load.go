package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file on top of Default() and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default() and validates the result.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg, err := Decode(raw)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode applies raw settings on top of Default(). Lists replace their default,
// nested objects merge into it. Every strategy entry starts from the defaults of
// its type, so an entry only needs the keys that differ.
func Decode(raw map[string]any) (Config, error) {
	cfg := Default()

	rawStrategies, hasStrategies := raw["strategies"]
	rest := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "strategies" {
			rest[k] = v
		}
	}
	if err := decode(rest, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if hasStrategies {
		list, ok := rawStrategies.([]any)
		if !ok {
			return Config{}, fmt.Errorf("strategies: expected a list, got %T", rawStrategies)
		}
		cfg.Strategies = make([]StrategyConfig, 0, len(list))
		for i, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				return Config{}, fmt.Errorf("strategies[%d]: expected an object, got %T", i, item)
			}
			typ, _ := entry["type"].(string)
			s := defaultStrategy(typ)
			if err := decode(entry, &s); err != nil {
				return Config{}, fmt.Errorf("strategies[%d]: %w", i, err)
			}
			cfg.Strategies = append(cfg.Strategies, s)
		}
	}
	return cfg, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ZeroFields:       true,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
