package toolexecutor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// MaxDisplaySize caps the textual rendering of a tool result.
const MaxDisplaySize = 10 * 1024

const truncationMarker = "\n... [output truncated]"

type argError struct {
	reason string
	err    error
}

func (e *argError) Error() string {
	return e.err.Error()
}

func (e *argError) withTool(tool string) *ToolInvocationError {
	return newInvocationError(tool, e.reason, e.err)
}

// prepareArguments copies the model-supplied arguments, fills defaults for
// absent optional parameters, checks required ones and coerces values into
// the declared parameter types.
func prepareArguments(params []ToolParameter, raw map[string]interface{}) (map[string]interface{}, *argError) {
	args := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		args[k] = v
	}

	for _, p := range params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, &argError{reason: ReasonMissingArgument, err: fmt.Errorf("missing required argument: %s", p.Name)}
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			} else if ok {
				delete(args, p.Name)
			}
			continue
		}

		coerced, err := coerceValue(p.Type, v)
		if err != nil {
			return nil, &argError{reason: ReasonInvalidArgument, err: fmt.Errorf("argument %s: %w", p.Name, err)}
		}
		args[p.Name] = coerced
	}

	return args, nil
}

// coerceValue converts JSON-decoded values to the declared type where the
// conversion is lossless. Values already of the right shape pass through.
func coerceValue(typ string, v interface{}) (interface{}, error) {
	switch typ {
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case int32:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) || math.IsInf(n, 0) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			if n < math.MinInt64 || n >= math.MaxInt64 {
				return nil, fmt.Errorf("integer out of range: %v", n)
			}
			return int(n), nil
		case float32:
			return coerceValue(typ, float64(n))
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", n.String())
			}
			return int(i), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", n)
			}
			return i, nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)

	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", n.String())
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", n)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)

	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return nil, fmt.Errorf("expected boolean, got %q", b)
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)

	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		}
		// Leave the value for the schema check to reject.
		return v, nil
	}

	return v, nil
}

// FormatOutput renders a tool's return value as text.
func FormatOutput(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// truncateDisplay truncates output if it exceeds the size limit
func truncateDisplay(s string) (string, bool) {
	if len(s) <= MaxDisplaySize {
		return s, false
	}

	log.Warn().
		Int("original", len(s)).
		Int("truncated", MaxDisplaySize).
		Msg("Output truncated")

	// cut on a rune boundary so the stored text stays valid UTF-8
	n := MaxDisplaySize
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + truncationMarker, true
}
