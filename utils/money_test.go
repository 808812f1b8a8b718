package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(150000), ToCents("1500"))
	assert.Equal(t, int64(150050), ToCents("1500,50"))
	assert.Equal(t, int64(150050), ToCents("1500.50"))
	assert.Equal(t, int64(105), ToCents("1,05"))
	assert.Equal(t, int64(0), ToCents(""))
	assert.Equal(t, int64(0), ToCents("abc"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "ARS 1.500,00", FormatMoney("ARS", 150000))
	assert.Equal(t, "ARS 0,50", FormatMoney("ARS", 50))
	assert.Equal(t, "ARS -12,34", FormatMoney("ARS", -1234))
	assert.Equal(t, "USD 1.234.567,89", FormatMoney("USD", 123456789))
}
