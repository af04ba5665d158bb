package runstats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Losses is a battle loss count that may be a lower bound ("5+").
type Losses struct {
	Count   int
	AtLeast bool
}

func (l Losses) String() string {
	if l.AtLeast {
		return strconv.Itoa(l.Count) + "+"
	}
	return strconv.Itoa(l.Count)
}

// ParseLosses reads a total_losses or battle_losses value.
func ParseLosses(v any) (Losses, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return Losses{}, false
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		return Losses{Count: int(x)}, true
	case int:
		return Losses{Count: x}, true
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Losses{}, false
	}
	l := Losses{}
	if strings.Contains(s, "+") {
		l.AtLeast = true
		s = strings.Replace(s, "+", "", 1)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err == nil {
		l.Count = int(f)
	}
	return l, true
}

// TotalLosses sums a battle_losses map. The total is a lower bound when any
// entry is; blank entries are skipped.
func TotalLosses(battleLosses map[string]any) Losses {
	var total Losses
	for _, v := range battleLosses {
		l, ok := ParseLosses(v)
		if !ok {
			continue
		}
		total.Count += l.Count
		total.AtLeast = total.AtLeast || l.AtLeast
	}
	return total
}
