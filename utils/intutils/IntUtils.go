// Package intutils provides utilities for working with integers
package intutils

// Min calculates and returns the minimum integer in a list
func Min(ints ...int) int {
	min := ints[0]
	for _, val := range ints {
		if val < min {
			min = val
		}
	}
	return min
}

// Prod returns the product of a list of integers
func Prod(ints ...int) int {
	prod := 1
	for _, val := range ints {
		prod *= val
	}
	return prod
}
