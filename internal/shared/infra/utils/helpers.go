package utils

// Pick devuelve a cuando cond es cierto y b en otro caso.
func Pick[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// OrElse devuelve v salvo que sea el valor cero del tipo.
func OrElse[T comparable](v, fallback T) T {
	var zero T
	return Pick(v != zero, v, fallback)
}
