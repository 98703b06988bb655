//go:build !race

package shop

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Tuned so verification lands in the tens of milliseconds range.
	return bcrypt.DefaultCost + 1
}
