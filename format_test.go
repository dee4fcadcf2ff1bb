package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		code   string
		want   string
	}{
		{"thousands", "1234.5", "USD", "$1,234.50"},
		{"zero", "0", "USD", "$0.00"},
		{"rounds to cents", "10.005", "USD", "$10.01"},
		{"unknown currency", "12.3", "XXZ", "12.30 XXZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.amount), tt.code))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "25.0%", formatPercent(25))
	assert.Equal(t, "33.3%", formatPercent(33.333))
}

func TestDeref(t *testing.T) {
	s := "rent"
	empty := ""

	assert.Equal(t, "rent", deref(&s))
	assert.Equal(t, "-", deref(&empty))
	assert.Equal(t, "-", deref(nil))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "NAME"}, [][]string{
		{"1", "Checking"},
		{"12", "Savings"},
	})

	assert.Equal(t, "ID  NAME\n1   Checking\n12  Savings\n", buf.String())
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printJSON(&buf, map[string]int{"id": 1}))
	assert.Equal(t, "{\n  \"id\": 1\n}\n", buf.String())
}
