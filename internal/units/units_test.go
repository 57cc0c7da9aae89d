package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWei(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "whole ether", input: "1", want: "1000000000000000000"},
		{name: "fraction", input: "1.5", want: "1500000000000000000"},
		{name: "leading dot", input: ".25", want: "250000000000000000"},
		{name: "one wei", input: "0.000000000000000001", want: "1"},
		{name: "padded", input: "  2 ", want: "2000000000000000000"},
		{name: "zero", input: "0", want: "0"},
		{name: "too many decimals", input: "0.0000000000000000001", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "lone dot", input: ".", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "exponent", input: "1e3", wantErr: true},
		{name: "explicit sign", input: "+1", wantErr: true},
		{name: "trailing zeros past wei", input: "1.50000000000000000000", want: "1500000000000000000"},
		{name: "large", input: "123456789.123456789", want: "123456789123456789000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToWei(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromWei(t *testing.T) {
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)
	half, _ := new(big.Int).SetString("500000000000000000", 10)

	assert.Equal(t, "1", FromWei(oneEther))
	assert.Equal(t, "0.5", FromWei(half))
	assert.Equal(t, "0.000000000000000001", FromWei(big.NewInt(1)))
	assert.Equal(t, "0", FromWei(big.NewInt(0)))
	assert.Equal(t, "0", FromWei(nil))
	assert.Equal(t, "-0.5", FromWei(new(big.Int).Neg(half)))
}

func TestEtherRoundTrip(t *testing.T) {
	for _, in := range []string{"1.5", "1", "0.1", "123456.000000000000000001", "0.000000000000000001"} {
		wei, err := ToWei(in)
		require.NoError(t, err)
		assert.Equal(t, in, FromWei(wei), "round trip of %s", in)
	}
}

func TestParseEtherList(t *testing.T) {
	got, err := ParseEtherList("0.5, 0.25,0.25")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "500000000000000000", got[0].String())
	assert.Equal(t, "250000000000000000", got[2].String())

	_, err = ParseEtherList("0.5,,1")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestParseIntegers(t *testing.T) {
	n, err := ParseUint(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	_, err = ParseUint("-1")
	require.ErrorIs(t, err, ErrInvalidInteger)

	b, err := ParseBigUint("30")
	require.NoError(t, err)
	assert.Equal(t, int64(30), b.Int64())

	_, err = ParseBigUint("3 0")
	require.ErrorIs(t, err, ErrInvalidInteger)
}
