package protocol

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ibflow/models"
)

// Fields is the named field set supplied with an outgoing request.
type Fields map[string]any

// wireValue renders a resolved field value as its wire token. Booleans
// encode as 0/1, nil as the empty field, times as yyyymmdd. Values the
// protocol has no representation for fail encoding.
func wireValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case decimal.Decimal:
		return t.String(), nil
	case time.Time:
		return t.Format("20060102"), nil
	case models.SecType:
		return string(t), nil
	case models.Right:
		return string(t), nil
	case models.MarketDataType:
		return strconv.Itoa(int(t)), nil
	case models.TickType:
		return strconv.Itoa(int(t)), nil
	default:
		return "", fmt.Errorf("no wire representation for %T", v)
	}
}
