package common

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
)

// Round2 四捨五入到小數點後兩位
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MaxInt 返回兩個整數中的較大值
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// IsTimeout 判斷是否為逾時（context 或網路層）
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
