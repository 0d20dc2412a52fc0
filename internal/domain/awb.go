package domain

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidAWB is returned when an invalid air waybill number is provided
var ErrInvalidAWB = errors.New("invalid air waybill number")

// AWB represents an immutable air waybill number value object
type AWB struct {
	value string
}

// House AWBs issued by this system carry the CF- prefix followed by
// 10-13 alphanumeric characters. Carrier-issued numbers are accepted
// in a basic alphanumeric format.
var (
	houseAWBPattern = regexp.MustCompile(`^CF-[A-Z0-9]{10,13}$`)
	basicAWBPattern = regexp.MustCompile(`^[A-Z0-9]{8,30}$`)
)

// NewAWB creates a new AWB value object with validation
func NewAWB(awb string) (AWB, error) {
	awb = strings.ToUpper(strings.TrimSpace(awb))

	if awb == "" {
		return AWB{}, errors.New("air waybill number cannot be empty")
	}

	if !houseAWBPattern.MatchString(awb) && !basicAWBPattern.MatchString(awb) {
		return AWB{}, ErrInvalidAWB
	}

	return AWB{value: awb}, nil
}

// MustNewAWB creates an AWB or panics if invalid (use for constants only)
func MustNewAWB(awb string) AWB {
	a, err := NewAWB(awb)
	if err != nil {
		panic(err)
	}
	return a
}

// Value returns the air waybill number value
func (a AWB) Value() string {
	return a.value
}

// String returns the string representation of the air waybill number
func (a AWB) String() string {
	return a.value
}

// Equals checks if two air waybill numbers are equal
func (a AWB) Equals(other AWB) bool {
	return a.value == other.value
}

// IsHouse returns true if this is a house air waybill issued by this system
func (a AWB) IsHouse() bool {
	return houseAWBPattern.MatchString(a.value)
}

// MarshalText implements encoding.TextMarshaler for JSON/BSON serialization
func (a AWB) MarshalText() ([]byte, error) {
	return []byte(a.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON/BSON deserialization
func (a *AWB) UnmarshalText(text []byte) error {
	awb, err := NewAWB(string(text))
	if err != nil {
		return err
	}
	*a = awb
	return nil
}
