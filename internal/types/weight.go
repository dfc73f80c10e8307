package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Unit is the canonical unit of a parsed package size
type Unit string

const (
	UnitGrams  Unit = "g"
	UnitMillis Unit = "ml"
	UnitPieces Unit = "pcs"
)

const (
	// DefaultPackageGrams is assumed when a weight string can't be parsed
	DefaultPackageGrams = 500.0

	// GramsPerPiece is the assumed weight of one counted item ("2st", "6 pcs")
	GramsPerPiece = 60.0
)

var ErrUnparseableWeight = errors.New("unparseable weight")

// Quantity is a package size in canonical units
type Quantity struct {
	Amount float64 `json:"amount"`
	Unit   Unit    `json:"unit"`
}

// Grams converts the quantity to grams; millilitres count as grams
func (q Quantity) Grams() float64 {
	if q.Unit == UnitPieces {
		return q.Amount * GramsPerPiece
	}
	return q.Amount
}

type weightSuffix struct {
	pattern *regexp.Regexp
	unit    Unit
	factor  float64
}

// Checked in order: the first suffix found anywhere in the string wins, so
// "1st ca 400g" resolves to 400 g rather than one piece.
var weightSuffixes = []weightSuffix{
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)kg`), UnitGrams, 1000},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)g`), UnitGrams, 1},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)l`), UnitMillis, 1000},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)dl`), UnitMillis, 100},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)cl`), UnitMillis, 10},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)ml`), UnitMillis, 1},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)st`), UnitPieces, 1},
	{regexp.MustCompile(`(\d+(?:[.,]\d+)?)pcs?`), UnitPieces, 1},
}

// ParseWeightStrict parses package strings such as "500g", "1,5 kg", "2.5dl" or "2st"
func ParseWeightStrict(s string) (Quantity, error) {
	normalized := strings.ReplaceAll(strings.ToLower(s), " ", "")
	if normalized == "" {
		return Quantity{}, fmt.Errorf("%w: empty", ErrUnparseableWeight)
	}

	for _, suffix := range weightSuffixes {
		match := suffix.pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.Replace(match[1], ",", ".", 1), 64)
		if err != nil {
			return Quantity{}, fmt.Errorf("%w: %q: %v", ErrUnparseableWeight, s, err)
		}
		if amount <= 0 {
			return Quantity{}, fmt.Errorf("%w: %q: non-positive amount", ErrUnparseableWeight, s)
		}
		return Quantity{Amount: amount * suffix.factor, Unit: suffix.unit}, nil
	}

	return Quantity{}, fmt.Errorf("%w: %q", ErrUnparseableWeight, s)
}

// ParseWeight is ParseWeightStrict with the 500 g fallback for unparseable input
func ParseWeight(s string) Quantity {
	q, err := ParseWeightStrict(s)
	if err != nil {
		return Quantity{Amount: DefaultPackageGrams, Unit: UnitGrams}
	}
	return q
}
