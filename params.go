package presto

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// bindParams renders positional parameters into the statement's ?
// placeholders as inline SQL literals. This is literal substitution, not
// protocol-level prepared-statement binding: the only escaping promised is
// correct literal syntax (single quotes doubled inside strings).
//
// Every parameter must be a scalar the engine has a literal form for; any
// other value fails with ErrInvalidParameter before a network call is made.
func bindParams(statement string, params []any) (string, error) {
	if len(params) == 0 {
		return statement, nil
	}

	var buf strings.Builder
	buf.Grow(len(statement) + len(params)*8)
	paramIdx := 0
	inString := false

	for i := 0; i < len(statement); i++ {
		ch := statement[i]
		if ch == '\'' {
			if inString && i+1 < len(statement) && statement[i+1] == '\'' {
				// Doubled quote inside a string literal.
				buf.WriteString("''")
				i++
				continue
			}
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if ch == '?' && !inString {
			if paramIdx >= len(params) {
				return "", fmt.Errorf("%w: statement has more placeholders than the %d provided parameters",
					ErrInvalidParameter, len(params))
			}
			literal, err := formatLiteral(params[paramIdx])
			if err != nil {
				return "", err
			}
			buf.WriteString(literal)
			paramIdx++
			continue
		}
		buf.WriteByte(ch)
	}

	if paramIdx != len(params) {
		return "", fmt.Errorf("%w: %d parameters provided but only %d placeholders in statement",
			ErrInvalidParameter, len(params), paramIdx)
	}
	return buf.String(), nil
}

// formatLiteral renders one parameter value in the engine's literal syntax.
func formatLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	case []byte:
		return "X'" + hex.EncodeToString(val) + "'", nil
	case time.Time:
		return "TIMESTAMP '" + val.Format("2006-01-02 15:04:05.000") + "'", nil
	default:
		return "", fmt.Errorf("%w: unsupported parameter type %T", ErrInvalidParameter, v)
	}
}
