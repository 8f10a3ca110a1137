package units

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func TestParseUnit(t *testing.T) {
	tests := []struct {
		symbol  string
		want    Unit
		wantErr bool
	}{
		{"METER", Meter, false},
		{"centimeter", Centimeter, false},
		{" Inch ", Inch, false},
		{"FEET", Feet, false},
		{"YARD", Yard, false},
		{"CELSIUS", Celsius, false},
		{"FAHRENHEIT", Fahrenheit, false},
		{"KELVIN", Kelvin, false},
		{"MILE", UnitUnknown, true},
		{"", UnitUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := ParseUnit(tt.symbol)
			if tt.wantErr {
				var unknown *UnknownUnitError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, tt.symbol, unknown.Symbol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveQuantity(t *testing.T) {
	for _, u := range Distance.Units() {
		q, err := ResolveQuantity(u.String())
		require.NoError(t, err)
		assert.Equal(t, Distance, q, u.String())
	}
	for _, u := range Temperature.Units() {
		q, err := ResolveQuantity(u.String())
		require.NoError(t, err)
		assert.Equal(t, Temperature, q, u.String())
	}

	_, err := ResolveQuantity("LITER")
	var unknown *UnknownUnitError
	assert.ErrorAs(t, err, &unknown)
}

func TestEveryUnitBelongsToOneQuantity(t *testing.T) {
	seen := make(map[Unit]Quantity)
	for _, q := range []Quantity{Distance, Temperature} {
		for _, u := range q.Units() {
			if prev, ok := seen[u]; ok {
				t.Fatalf("unit %s listed under %s and %s", u, prev, q)
			}
			seen[u] = q
			assert.Equal(t, q, u.Quantity())
		}
	}
	assert.Len(t, seen, len(AllUnits()))
}

func TestQuantityBase(t *testing.T) {
	assert.Equal(t, Meter, Distance.Base())
	assert.Equal(t, Celsius, Temperature.Base())
}

func TestCheckUnitQuantity(t *testing.T) {
	assert.NoError(t, CheckUnitQuantity(Feet, Distance))

	err := CheckUnitQuantity(Kelvin, Distance)
	var mismatch *UnitQuantityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, Kelvin, mismatch.Unit)
	assert.Equal(t, Distance, mismatch.Expected)
	assert.Equal(t, Temperature, mismatch.Actual)
}

func TestUnitJSON(t *testing.T) {
	type payload struct {
		Unit     Unit     `json:"unit"`
		Quantity Quantity `json:"type"`
	}

	data, err := json.Marshal(payload{Unit: Yard, Quantity: Distance})
	require.NoError(t, err)
	assert.JSONEq(t, `{"unit":"YARD","type":"DISTANCE"}`, string(data))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"unit":"kelvin","type":"temperature"}`), &decoded))
	assert.Equal(t, Kelvin, decoded.Unit)
	assert.Equal(t, Temperature, decoded.Quantity)

	err = json.Unmarshal([]byte(`{"unit":"PARSEC"}`), &decoded)
	assert.Error(t, err)
}

func TestConvertDistanceIdentity(t *testing.T) {
	values := []float64{0, 1, -1, 0.1, 1.0 / 3.0, 123456.789, math.MaxFloat64, math.SmallestNonzeroFloat64}
	for _, u := range Distance.Units() {
		for _, v := range values {
			got, err := Convert(v, u, u)
			require.NoError(t, err)
			if got != v {
				t.Errorf("Convert(%v, %s, %s) = %v, want exact %v", v, u, u, got, v)
			}
		}
	}
}

func TestConvertDistance(t *testing.T) {
	tests := []struct {
		value    float64
		from, to Unit
		want     float64
	}{
		{1, Meter, Centimeter, 100},
		{100, Centimeter, Meter, 1},
		{1, Feet, Inch, 12},
		{1, Yard, Feet, 3},
		{1, Inch, Centimeter, 2.54},
		{1000, Meter, Yard, 1093.6132983377079},
	}

	for _, tt := range tests {
		got, err := Convert(tt.value, tt.from, tt.to)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, tolerance, "%v %s -> %s", tt.value, tt.from, tt.to)
	}
}

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		value    float64
		from, to Unit
		want     float64
	}{
		{0, Celsius, Fahrenheit, 32},
		{100, Celsius, Fahrenheit, 212},
		{0, Celsius, Kelvin, 273.15},
		{32, Fahrenheit, Celsius, 0},
		{212, Fahrenheit, Celsius, 100},
		{273.15, Kelvin, Celsius, 0},
		{-40, Fahrenheit, Celsius, -40},
		{0, Kelvin, Fahrenheit, -459.67},
	}

	for _, tt := range tests {
		got, err := Convert(tt.value, tt.from, tt.to)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, tolerance, "%v %s -> %s", tt.value, tt.from, tt.to)
	}

	// exact values for the documented reference points
	f, _ := Convert(0, Celsius, Fahrenheit)
	assert.Equal(t, 32.0, f)
	f, _ = Convert(100, Celsius, Fahrenheit)
	assert.Equal(t, 212.0, f)
	k, _ := Convert(0, Celsius, Kelvin)
	assert.Equal(t, 273.15, k)
}

func TestConvertRoundTrip(t *testing.T) {
	values := []float64{-273.15, -40, 0, 21.5, 100, 1e6}
	for _, q := range []Quantity{Distance, Temperature} {
		for _, a := range q.Units() {
			for _, b := range q.Units() {
				for _, x := range values {
					there, err := Convert(x, a, b)
					require.NoError(t, err)
					back, err := Convert(there, b, a)
					require.NoError(t, err)
					assert.InDelta(t, x, back, 1e-9*math.Max(1, math.Abs(x)), "%v %s -> %s -> %s", x, a, b, a)
				}
			}
		}
	}
}

func TestConvertIncompatible(t *testing.T) {
	_, err := Convert(1, Meter, Celsius)
	var incompatible *IncompatibleUnitsError
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, Meter, incompatible.From)
	assert.Equal(t, Celsius, incompatible.To)

	_, err = Convert(1, UnitUnknown, Meter)
	var unknown *UnknownUnitError
	assert.True(t, errors.As(err, &unknown))
}

func TestConvertSum(t *testing.T) {
	t.Run("linear converts the sum directly", func(t *testing.T) {
		got, err := ConvertSum(10, 4, Meter, Centimeter)
		require.NoError(t, err)
		assert.InDelta(t, 1000, got, tolerance)
	})

	t.Run("affine matches per-record conversion", func(t *testing.T) {
		readings := []float64{10, 20, 30.5}
		var sum, want float64
		for _, r := range readings {
			sum += r
			want += MustConvert(r, Celsius, Fahrenheit)
		}

		got, err := ConvertSum(sum, int64(len(readings)), Celsius, Fahrenheit)
		require.NoError(t, err)
		assert.InDelta(t, want, got, tolerance)

		// converting the raw sum would add the 32 degree offset only once
		naive := MustConvert(sum, Celsius, Fahrenheit)
		assert.NotEqual(t, want, naive)
	})

	t.Run("kelvin offset scales with count", func(t *testing.T) {
		got, err := ConvertSum(0, 3, Celsius, Kelvin)
		require.NoError(t, err)
		assert.InDelta(t, 3*273.15, got, tolerance)
	})

	t.Run("identity and empty", func(t *testing.T) {
		got, err := ConvertSum(42, 2, Fahrenheit, Fahrenheit)
		require.NoError(t, err)
		assert.Equal(t, 42.0, got)

		got, err = ConvertSum(0, 0, Celsius, Kelvin)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got)
	})

	t.Run("cross quantity", func(t *testing.T) {
		_, err := ConvertSum(1, 1, Kelvin, Yard)
		var incompatible *IncompatibleUnitsError
		assert.ErrorAs(t, err, &incompatible)
	})
}
