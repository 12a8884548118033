package checkout

import (
	"strconv"
	"time"
)

// OrderNumberPrefix is the human-readable order number prefix.
const OrderNumberPrefix = "UT"

// NewOrderNumber derives an order number from the current time: the prefix
// followed by the trailing eight digits of the epoch-millisecond clock.
// Two calls inside the same millisecond produce the same value, so callers
// must rely on the database uniqueness constraint and regenerate on
// conflict.
func NewOrderNumber() string {
	return orderNumberAt(time.Now())
}

func orderNumberAt(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return OrderNumberPrefix + ms
}
