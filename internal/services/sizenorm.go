package services

import (
	"regexp"
	"strconv"
	"strings"
)

// weightUnits maps weight unit tokens to their factor in grams.
var weightUnits = map[string]float64{
	"g":  1,
	"kg": 1000,
	"mg": 0.001,
	"lb": 453.592,
	"oz": 28.3495,
}

// volumeUnits maps volume unit tokens to their factor in milliliters.
var volumeUnits = map[string]float64{
	"ml":   1,
	"l":    1000,
	"cl":   10,
	"dl":   100,
	"gal":  3785.41,
	"floz": 29.5735,
}

var (
	// "500 ml", "1kg", "16 fl oz"
	sizeNumberFirst = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-z]+(?:\s?oz)?)`)
	// "unknown-unit-7": OCR sometimes yields the unit token before the
	// number, so accept that order as a fallback.
	sizeUnitFirst = regexp.MustCompile(`([a-z]+(?:-[a-z]+)*)[\s-]*(\d+(?:\.\d+)?)`)
)

// NormalizeSize converts a free-text size string ("500 ML", "1kg") into a
// canonical (value, unit) pair: weights in grams, volumes in milliliters.
// An unrecognized unit is passed through unchanged with its raw value, and
// a string without a number+unit pair yields (nil, nil). It never fails;
// absence of a pattern is not an error.
func NormalizeSize(sizeText string) (*float64, *string) {
	s := strings.ToLower(strings.TrimSpace(sizeText))

	var valueStr, unit string
	if m := sizeNumberFirst.FindStringSubmatch(s); m != nil {
		valueStr, unit = m[1], strings.ReplaceAll(m[2], " ", "")
	} else if m := sizeUnitFirst.FindStringSubmatch(s); m != nil {
		valueStr, unit = m[2], m[1]
	} else {
		return nil, nil
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil, nil
	}

	if factor, ok := weightUnits[unit]; ok {
		v := value * factor
		u := "g"
		return &v, &u
	}
	if factor, ok := volumeUnits[unit]; ok {
		v := value * factor
		u := "ml"
		return &v, &u
	}

	// Unknown unit: keep the raw value and token, no conversion.
	return &value, &unit
}
