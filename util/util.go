package util

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUID generates a random UUID string
func GenerateUUID() string {
	return uuid.New().String()
}

// FormatBytes 将字节数格式化为MB或GB
func FormatBytes(n int64) string {
	value := n
	sign := ""
	if value < 0 {
		value = -value
		sign = "-"
	}

	const (
		mb = 1 << 20
		gb = 1 << 30
	)

	if value < gb {
		return fmt.Sprintf("%s%.2f MB", sign, float64(value)/float64(mb))
	}
	return fmt.Sprintf("%s%.2f GB", sign, float64(value)/float64(gb))
}
