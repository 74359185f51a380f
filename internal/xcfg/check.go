package xcfg

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// Check is a check-action spec as spelled in configuration files: either a
// bare scalar (default, disabled, none) or a one-key mapping selecting the
// fixed, as_type, custom or djb2 form.
type Check struct {
	m.CheckType
}

// UnmarshalYAML decodes the scalar and mapping spellings.
func (c *Check) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		ct, err := checkFromScalar(value.Value)
		if err != nil {
			return err
		}

		c.CheckType = ct

		return nil

	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("check spec mapping must have exactly one key")
		}

		key := value.Content[0].Value
		payload := value.Content[1].Value

		ct, err := checkFromKeyValue(key, payload)
		if err != nil {
			return err
		}

		c.CheckType = ct

		return nil
	}

	return fmt.Errorf("invalid check spec: expected scalar or single-key mapping")
}

// UnmarshalTOML decodes the same spellings from TOML values.
func (c *Check) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		ct, err := checkFromScalar(v)
		if err != nil {
			return err
		}

		c.CheckType = ct

		return nil

	case map[string]any:
		if len(v) != 1 {
			return fmt.Errorf("check spec table must have exactly one key")
		}

		for key, raw := range v {
			ct, err := checkFromKeyValue(key, tomlScalar(raw))
			if err != nil {
				return err
			}

			c.CheckType = ct
		}

		return nil
	}

	return fmt.Errorf("invalid check spec: expected string or single-key table")
}

func tomlScalar(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	}

	return fmt.Sprintf("%v", raw)
}

func checkFromScalar(s string) (m.CheckType, error) {
	switch s {
	case "default", "":
		return m.Default(), nil
	case "disabled", "none", "no":
		return m.Disabled(), nil
	case "yes":
		return m.Default(), nil
	}

	return m.CheckType{}, fmt.Errorf("unknown check spec %q", s)
}

func checkFromKeyValue(key, value string) (m.CheckType, error) {
	switch key {
	case "fixed":
		v, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return m.CheckType{}, fmt.Errorf("invalid fixed check value %q: %w", value, err)
		}

		return m.Fixed(v), nil

	case "as_type":
		return m.AsType(value), nil

	case "custom":
		return m.Custom(value), nil

	case "djb2":
		// Reserved form; kept so configuration files round-trip, but the
		// engine rejects it when the point is resolved.
		return m.Named(value), nil
	}

	return m.CheckType{}, fmt.Errorf("unknown check spec key %q", key)
}
