package cli

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"12.50", 1250},
		{"0.05", 5},
		{".75", 75},
		{"0", 0},
		{"-3.25", -325},
		{" 7.10 ", 710},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCentsRejectsMalformed(t *testing.T) {
	for _, in := range []string{"abc", "1.234", "1.2x", "1,50"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCents(in)
			assert.Error(t, err)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.50", FormatCents(1250))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "-3.25", FormatCents(-325))
}

func TestFormatCentsRoundTrips(t *testing.T) {
	for _, cents := range []int64{0, 5, 99, 100, 1250, -325} {
		got, err := ParseCents(FormatCents(cents))
		require.NoError(t, err)
		assert.Equal(t, cents, got)
	}
}

func TestGetSimpleText(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Salt\n"))
	var out strings.Builder
	got, err := GetSimpleText(r, "Product name", &out)
	require.NoError(t, err)
	assert.Equal(t, "Salt", got)
	assert.Contains(t, out.String(), "Product name")
}

func TestGetSimpleTextTrimsAndToleratesEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("  Sugar  "))
	got, err := GetSimpleText(r, "Product name", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "Sugar", got)
}

func TestGetMoney(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("12.50\n"))
	got, err := GetMoney(r, "Unit price", io.Discard)
	require.NoError(t, err)
	assert.EqualValues(t, 1250, got)
}

func TestGetInt(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("42\n"))
	got, err := GetInt(r, "Quantity", io.Discard)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
}
