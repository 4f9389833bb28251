package playlist

// None marks "no track selected".
const None = -1

// Next returns the index after cur, wrapping to the start. With nothing
// selected it returns the first track. It returns None for an empty list.
func Next(cur, n int) int {
	if n <= 0 {
		return None
	}
	if cur < 0 {
		cur = -1
	}
	return (cur + 1) % n
}

// Prev returns the index before cur, wrapping to the end. With nothing
// selected it returns the first track. It returns None for an empty list.
func Prev(cur, n int) int {
	if n <= 0 {
		return None
	}
	if cur < 0 {
		cur = 1
	}
	return ((cur-1)%n + n) % n
}
