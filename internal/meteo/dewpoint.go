// Package meteo holds the meteorological math shared by the data sources.
package meteo

import "math"

// DewPointArdenBuck calculates the dew point in degree Celsius from the
// relative humidity in percent and the temperature in degree Celsius.
// It uses the Magnus formula with the Boegel modification in form of
// the Arden Buck equation, usable between -80 and +50 degree Celsius.
// NaN inputs propagate through the arithmetic to a NaN result.
func DewPointArdenBuck(humidity, temperature float64) float64 {
	// k2 has no unit, k3 and k4 are in degree Celsius.
	const (
		k2 = 18.678
		k3 = 257.14
		k4 = 234.5
	)

	f1 := k2 - (temperature / k4)
	f2 := temperature / (k3 + temperature)
	gamma := math.Log((humidity / 100) * math.Exp(f1*f2))
	return (k3 * gamma) / (k2 - gamma)
}

// DewPointMagnus calculates the dew point in degree Celsius from the
// relative humidity in percent and the temperature in degree Celsius
// using the classic Magnus formula, usable between -45 and +60 degree
// Celsius. NaN inputs propagate through the arithmetic to a NaN result.
func DewPointMagnus(humidity, temperature float64) float64 {
	const (
		k2 = 17.62
		k3 = 243.12
	)

	f1 := (k2 * temperature) / (k3 + temperature)
	f2 := (k2 * k3) / (k3 + temperature)
	return k3 * ((f1 + math.Log(humidity/100)) / (f2 - math.Log(humidity/100)))
}
