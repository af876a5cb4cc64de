package curve

// naturalSpline returns the second derivatives of a natural cubic spline
// through the pillars. The tridiagonal system is solved in one forward and
// one backward sweep; natural boundaries pin the end second derivatives to
// zero. len(pts) >= 2 is guaranteed by New.
func naturalSpline(pts []Point) []float64 {
	n := len(pts)
	m := make([]float64, n)
	if n == 2 {
		return m // straight segment
	}

	// u is scratch storage for the decomposed upper diagonal.
	u := make([]float64, n-1)

	for i := 1; i < n-1; i++ {
		sig := (pts[i].T - pts[i-1].T) / (pts[i+1].T - pts[i-1].T)
		p := sig*m[i-1] + 2
		m[i] = (sig - 1) / p
		u[i] = (pts[i+1].Z-pts[i].Z)/(pts[i+1].T-pts[i].T) -
			(pts[i].Z-pts[i-1].Z)/(pts[i].T-pts[i-1].T)
		u[i] = (6*u[i]/(pts[i+1].T-pts[i-1].T) - sig*u[i-1]) / p
	}

	m[n-1] = 0
	for i := n - 2; i >= 0; i-- {
		m[i] = m[i]*m[i+1] + u[i]
	}
	return m
}

// splineValue evaluates the spline on segment [pts[i].T, pts[i+1].T].
func splineValue(pts []Point, m []float64, i int, t float64) float64 {
	h := pts[i+1].T - pts[i].T
	a := (pts[i+1].T - t) / h
	b := (t - pts[i].T) / h
	return a*pts[i].Z + b*pts[i+1].Z +
		((a*a*a-a)*m[i]+(b*b*b-b)*m[i+1])*h*h/6
}
