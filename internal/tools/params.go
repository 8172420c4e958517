package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloud-ru/finassist-go/internal/validators"
)

// floatParam извлекает число; принимает float64, json.Number и числовые строки из форм
func floatParam(params map[string]interface{}, key string) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: missing parameter: %s", validators.ErrValidation, key)
	}
	return toFloat(key, raw)
}

// optionalFloatParam как floatParam, но отсутствующий параметр равен 0
func optionalFloatParam(params map[string]interface{}, key string) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, nil
	}
	if s, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return toFloat(key, raw)
}

func intParam(params map[string]interface{}, key string) (int, error) {
	f, err := floatParam(params, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: invalid parameter: %s must be a whole number", validators.ErrValidation, key)
	}
	return int(f), nil
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: missing parameter: %s", validators.ErrValidation, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: invalid parameter: %s must be a string", validators.ErrValidation, key)
	}
	return s, nil
}

func toFloat(key string, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: invalid parameter: %s", validators.ErrValidation, key)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid parameter: %s", validators.ErrValidation, key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: invalid parameter: %s", validators.ErrValidation, key)
	}
}
