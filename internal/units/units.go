// Package units holds the fixed unit table for every supported physical quantity
// and the numeric conversions between units of the same quantity.
package units

import (
	"strings"
)

// Quantity is a physical dimension grouping mutually convertible units
type Quantity uint8

const (
	QuantityUnknown Quantity = iota
	Distance
	Temperature
)

// Unit is one member of the closed unit set
type Unit uint8

const (
	UnitUnknown Unit = iota
	Meter
	Centimeter
	Inch
	Feet
	Yard
	Celsius
	Fahrenheit
	Kelvin
)

type unitInfo struct {
	symbol   string
	quantity Quantity
	toBase   func(float64) float64
	fromBase func(float64) float64
	// linear conversions distribute over sums
	linear bool
}

type quantityInfo struct {
	symbol string
	base   Unit
	units  []Unit
}

// Distance factors to meter
const (
	meterFactor      = 1
	centimeterFactor = 0.01
	inchFactor       = 0.0254
	feetFactor       = 0.3048
	yardFactor       = 0.9144
)

var (
	unitTable = map[Unit]unitInfo{
		Meter:      scaled("METER", meterFactor),
		Centimeter: scaled("CENTIMETER", centimeterFactor),
		Inch:       scaled("INCH", inchFactor),
		Feet:       scaled("FEET", feetFactor),
		Yard:       scaled("YARD", yardFactor),
		Celsius: {
			symbol:   "CELSIUS",
			quantity: Temperature,
			toBase:   func(v float64) float64 { return v },
			fromBase: func(v float64) float64 { return v },
		},
		Fahrenheit: {
			symbol:   "FAHRENHEIT",
			quantity: Temperature,
			toBase:   func(v float64) float64 { return (v - 32) * 5 / 9 },
			fromBase: func(v float64) float64 { return v*9/5 + 32 },
		},
		Kelvin: {
			symbol:   "KELVIN",
			quantity: Temperature,
			toBase:   func(v float64) float64 { return v - 273.15 },
			fromBase: func(v float64) float64 { return v + 273.15 },
		},
	}

	quantityTable = map[Quantity]quantityInfo{
		Distance: {
			symbol: "DISTANCE",
			base:   Meter,
			units:  []Unit{Meter, Centimeter, Inch, Feet, Yard},
		},
		Temperature: {
			symbol: "TEMPERATURE",
			base:   Celsius,
			units:  []Unit{Celsius, Fahrenheit, Kelvin},
		},
	}

	unitsBySymbol     = make(map[string]Unit, len(unitTable))
	quantityBySymbols = make(map[string]Quantity, len(quantityTable))
)

func init() {
	for u, info := range unitTable {
		unitsBySymbol[info.symbol] = u
	}
	for q, info := range quantityTable {
		quantityBySymbols[info.symbol] = q
	}
}

func scaled(symbol string, factor float64) unitInfo {
	return unitInfo{
		symbol:   symbol,
		quantity: Distance,
		toBase:   func(v float64) float64 { return v * factor },
		fromBase: func(v float64) float64 { return v / factor },
		linear:   true,
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseUnit looks up a unit by its symbol (case-insensitive)
func ParseUnit(symbol string) (Unit, error) {
	if u, ok := unitsBySymbol[normalize(symbol)]; ok {
		return u, nil
	}
	return UnitUnknown, &UnknownUnitError{Symbol: symbol}
}

// ParseQuantity looks up a quantity by its symbol (case-insensitive)
func ParseQuantity(symbol string) (Quantity, error) {
	if q, ok := quantityBySymbols[normalize(symbol)]; ok {
		return q, nil
	}
	return QuantityUnknown, &UnknownQuantityError{Symbol: symbol}
}

// ResolveQuantity maps a unit symbol to the quantity it measures
func ResolveQuantity(symbol string) (Quantity, error) {
	u, err := ParseUnit(symbol)
	if err != nil {
		return QuantityUnknown, err
	}
	return u.Quantity(), nil
}

// CheckUnitQuantity fails when u does not measure q
func CheckUnitQuantity(u Unit, q Quantity) error {
	if actual := u.Quantity(); actual != q {
		return &UnitQuantityMismatchError{Unit: u, Expected: q, Actual: actual}
	}
	return nil
}

// AllUnits returns every known unit in declaration order
func AllUnits() []Unit {
	return []Unit{Meter, Centimeter, Inch, Feet, Yard, Celsius, Fahrenheit, Kelvin}
}

// Symbols returns the symbols of the given units
func Symbols(list []Unit) []string {
	out := make([]string, len(list))
	for i, u := range list {
		out[i] = u.String()
	}
	return out
}

// Valid reports whether u is a member of the unit table
func (u Unit) Valid() bool {
	_, ok := unitTable[u]
	return ok
}

// Quantity returns the quantity measured by u
func (u Unit) Quantity() Quantity {
	return unitTable[u].quantity
}

// Linear reports whether conversions from u scale without an offset
func (u Unit) Linear() bool {
	return unitTable[u].linear
}

func (u Unit) String() string {
	if info, ok := unitTable[u]; ok {
		return info.symbol
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler
func (u Unit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, &UnknownUnitError{Symbol: u.String()}
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Valid reports whether q is a known quantity
func (q Quantity) Valid() bool {
	_, ok := quantityTable[q]
	return ok
}

// Base returns the canonical unit all conversions pivot through
func (q Quantity) Base() Unit {
	return quantityTable[q].base
}

// Units returns the member units of q in declaration order
func (q Quantity) Units() []Unit {
	members := quantityTable[q].units
	out := make([]Unit, len(members))
	copy(out, members)
	return out
}

func (q Quantity) String() string {
	if info, ok := quantityTable[q]; ok {
		return info.symbol
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler
func (q Quantity) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, &UnknownQuantityError{Symbol: q.String()}
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (q *Quantity) UnmarshalText(text []byte) error {
	parsed, err := ParseQuantity(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
