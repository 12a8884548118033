package checkout

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrderNumberFormat(t *testing.T) {
	n := NewOrderNumber()
	require.True(t, strings.HasPrefix(n, OrderNumberPrefix))
	require.Len(t, n, len(OrderNumberPrefix)+8)
	for _, r := range n[len(OrderNumberPrefix):] {
		require.True(t, r >= '0' && r <= '9', "non-digit %q in %s", r, n)
	}
}

func TestOrderNumberUsesTrailingDigits(t *testing.T) {
	at := time.UnixMilli(1756600012345)
	ms := strconv.FormatInt(at.UnixMilli(), 10)
	require.Equal(t, OrderNumberPrefix+ms[len(ms)-8:], orderNumberAt(at))
}

// Two generations inside the same millisecond collide; uniqueness is the
// database's job, callers regenerate on conflict.
func TestOrderNumberSameMillisecondCollides(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	require.Equal(t, orderNumberAt(at), orderNumberAt(at))
}
