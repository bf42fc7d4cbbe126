package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Contains(t, FormatMoney(1234.565, "EUR"), "1,234.57")
	assert.Contains(t, FormatMoney(-12.5, "EUR"), "12.50")
	assert.Contains(t, FormatMoney(-12.5, "EUR"), "-")
	assert.Equal(t, "3.10 XYZ", FormatMoney(3.1, "XYZ"))
}
