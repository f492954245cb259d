package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Blocking is a bool coerced from bool, string, or number at decode time
// (§3: "coerced from bool/string/number"). A blocking task prevents later
// siblings at the same level from opening in the same scheduling pass.
type Blocking bool

// UnmarshalJSON accepts true/false, "true"/"false" (any case), and any
// nonzero/zero JSON number.
func (b *Blocking) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := coerceBlocking(raw)
	if err != nil {
		return err
	}
	*b = Blocking(v)
	return nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (b *Blocking) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := coerceBlocking(raw)
	if err != nil {
		return err
	}
	*b = Blocking(v)
	return nil
}

// MarshalJSON renders Blocking as a plain JSON boolean.
func (b Blocking) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func coerceBlocking(raw any) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		switch s {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no", "":
			return false, nil
		}
		if parsed, err := strconv.ParseBool(s); err == nil {
			return parsed, nil
		}
		return false, fmt.Errorf("domain: cannot coerce %q to blocking bool", v)
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("domain: cannot coerce %T to blocking bool", raw)
	}
}

// Bool returns the plain bool value.
func (b Blocking) Bool() bool { return bool(b) }
