package count

// IsPrime reports whether n is prime, by trial division up to the integer
// square root. Values below 2 are not prime.
func IsPrime(n int64) bool {
	if n < 2 {
		return false
	}
	if n < 4 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for d := int64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// NextPrime returns the smallest prime greater than or equal to n.
//
// Precondition: the result must be representable; callers pass counting
// values, which are far below the int64 ceiling.
func NextPrime(n int64) int64 {
	if n <= 2 {
		return 2
	}
	for !IsPrime(n) {
		n++
	}
	return n
}
