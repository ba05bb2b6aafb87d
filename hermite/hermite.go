// Package hermite encodes homodyne quadrature measurements into Fock basis
// amplitudes and phases using harmonic oscillator eigenfunctions.
package hermite

import "math"

var quarticRootPi = math.Pow(math.Pi, 0.25)

// Val evaluates the physicists' Hermite series
//
//	c[0]*H_0(x) + c[1]*H_1(x) + ... + c[n]*H_n(x)
//
// by backward recursion. Unlike the forward three term recurrence it never forms
// the individual H_k(x) for k < n.
func Val(x float64, c []float64) float64 {
	x2 := 2 * x
	var c0, c1 float64
	switch len(c) {
	case 0:
		return 0
	case 1:
		return c[0]
	case 2:
		c0, c1 = c[0], c[1]
	default:
		nd := len(c)
		c0, c1 = c[len(c)-2], c[len(c)-1]
		for i := 3; i <= len(c); i++ {
			tmp := c0
			nd--
			c0 = c[len(c)-i] - c1*float64(2*(nd-1))
			c1 = tmp + c1*x2
		}
	}
	return c0 + c1*x2
}

// LogFactorial returns log(n!) as lgamma(n+1).
func LogFactorial(n float64) float64 {
	lg, _ := math.Lgamma(n + 1)
	return lg
}

// Wavefunctions fills dst with the harmonic oscillator eigenfunctions
// ψ_0(x) .. ψ_{len(dst)-1}(x), where
//
//	ψ_n(x) = H_n(x) exp(-x²/2) / sqrt(2ⁿ n!) / π^¼
//
// using the normalised recurrence
//
//	ψ_{n+1} = sqrt(2/(n+1)) x ψ_n - sqrt(n/(n+1)) ψ_{n-1}
//
// so no intermediate grows like H_n or n!. dst is returned.
func Wavefunctions(x float64, dst []float64) []float64 {
	if len(dst) == 0 {
		return dst
	}
	dst[0] = math.Exp(-x*x/2) / quarticRootPi
	if len(dst) == 1 {
		return dst
	}
	dst[1] = math.Sqrt2 * x * dst[0]
	for n := 1; n+1 < len(dst); n++ {
		k := float64(n)
		dst[n+1] = math.Sqrt(2/(k+1))*x*dst[n] - math.Sqrt(k/(k+1))*dst[n-1]
	}
	return dst
}

// Factorial returns n! = Γ(n+1).
func Factorial(n float64) float64 { return math.Exp(LogFactorial(n)) }
