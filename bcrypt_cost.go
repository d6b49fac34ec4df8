//go:build !race

package auth

func passwordHashCost() int {
	// Deliberately above bcrypt.DefaultCost to keep offline brute force slow.
	return 14
}
