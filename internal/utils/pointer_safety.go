package utils

// Ptr returns a pointer to a copy of v, for optional fields such as nullable hashes.
func Ptr[T any](v T) *T {
	return &v
}
