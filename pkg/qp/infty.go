package qp

// CheckInfinity clamps every lower limit below -Infty to -Infty and every upper
// limit above +Infty to +Infty, for both bounds and general constraints.
// Solve calls it before each attempt.
func (p *Problem) CheckInfinity() {
	clampInfinity(p.d.l, p.d.u, p.opts.Infty)
	clampInfinity(p.d.lA, p.d.uA, p.opts.Infty)
}

func clampInfinity(lower, upper []float64, infty float64) {
	for i := range lower {
		if lower[i] < -infty {
			lower[i] = -infty
		}
	}
	for i := range upper {
		if upper[i] > infty {
			upper[i] = infty
		}
	}
}
