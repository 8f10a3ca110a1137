package units

import (
	"fmt"
	"strings"
)

// UnknownUnitError reports a unit symbol outside the fixed table
type UnknownUnitError struct {
	Symbol string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit %q: must be one of %s", e.Symbol, strings.Join(Symbols(AllUnits()), ", "))
}

// UnknownQuantityError reports a quantity symbol outside the fixed table
type UnknownQuantityError struct {
	Symbol string
}

func (e *UnknownQuantityError) Error() string {
	return fmt.Sprintf("unknown metric type %q: must be one of DISTANCE, TEMPERATURE", e.Symbol)
}

// IncompatibleUnitsError reports a conversion between two quantities
type IncompatibleUnitsError struct {
	From Unit
	To   Unit
}

func (e *IncompatibleUnitsError) Error() string {
	return fmt.Sprintf("cannot convert %s (%s) to %s (%s)", e.From, e.From.Quantity(), e.To, e.To.Quantity())
}

// UnitQuantityMismatchError reports a unit that does not measure the requested quantity
type UnitQuantityMismatchError struct {
	Unit     Unit
	Expected Quantity
	Actual   Quantity
}

func (e *UnitQuantityMismatchError) Error() string {
	return fmt.Sprintf("unit %s measures %s, not %s", e.Unit, e.Actual, e.Expected)
}
