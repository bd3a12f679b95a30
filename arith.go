package calcflow

// CustomAddOffset is the fixed amount CustomAdd adds on top of a plain sum
const CustomAddOffset = 3

// Add returns the sum of a and b.
func Add(a, b int64) int64 {
	return a + b
}

// CustomAdd returns a + b + CustomAddOffset.
func CustomAdd(a, b int64) int64 {
	return Add(a, b) + CustomAddOffset
}

// Multiply returns a times b.
func Multiply(a, b int64) int64 {
	return a * b
}
