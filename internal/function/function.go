package function

// Nest wraps final in the given wrappers so that the first wrapper is the outermost one.
// It allows rewriting expressions like `res := a(b(c(final)))` as `res := function.Nest(final, a, b, c)`.
func Nest[T any](final T, wrappers ...func(T) T) T {
	for i := len(wrappers) - 1; i >= 0; i-- {
		final = wrappers[i](final)
	}
	return final
}
