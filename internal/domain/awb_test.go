package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewAWB tests air waybill number validation
func TestNewAWB(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{name: "House AWB", input: "CF-2024000101AB", expected: "CF-2024000101AB"},
		{name: "Carrier numeric AWB", input: "176123456785", expected: "176123456785"},
		{name: "Lowercase normalized", input: "cf-2024000101ab", expected: "CF-2024000101AB"},
		{name: "Whitespace trimmed", input: "  AWB12345678  ", expected: "AWB12345678"},
		{name: "Empty", input: "", expectErr: true},
		{name: "Too short", input: "AB12", expectErr: true},
		{name: "Too long", input: "X123456789012345678901234567890X", expectErr: true},
		{name: "Illegal characters", input: "AWB 123/456!", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			awb, err := NewAWB(tt.input)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, awb.Value())
			}
		})
	}
}

// TestAWBIsHouse tests house prefix detection
func TestAWBIsHouse(t *testing.T) {
	house := MustNewAWB("CF-2024000101AB")
	assert.True(t, house.IsHouse())

	carrier := MustNewAWB("176123456785")
	assert.False(t, carrier.IsHouse())
}

// TestAWBEquals tests value equality
func TestAWBEquals(t *testing.T) {
	a := MustNewAWB("CF-2024000101AB")
	b := MustNewAWB("cf-2024000101ab")
	c := MustNewAWB("176123456785")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}
