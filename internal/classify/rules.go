package classify

// rule maps one piece of shape evidence to a digit. Weights are relative to
// the per-digit baseline; a decisive rule outweighs the sum of all baselines
// so a canonical shape always produces a confident winner.
type rule struct {
	name   string
	digit  int
	weight float64
	when   func(f Features) bool
}

var rules = []rule{
	// Topology first: hole count is the strongest signal a 28x28 digit has.
	{"double-hole", 8, 5.0, func(f Features) bool {
		return f.Holes >= 2
	}},
	{"central-hole-symmetric", 0, 4.0, func(f Features) bool {
		return f.Holes == 1 && f.HoleY > 0.32 && f.HoleY < 0.68 && f.MirrorSym > 0.55 && f.Aspect > 0.55
	}},
	{"low-hole", 6, 3.0, func(f Features) bool {
		return f.Holes == 1 && f.HoleY >= 0.58
	}},
	{"high-hole", 9, 3.0, func(f Features) bool {
		return f.Holes == 1 && f.HoleY <= 0.42
	}},
	{"high-hole-open-top", 4, 1.2, func(f Features) bool {
		return f.Holes == 1 && f.HoleY <= 0.45 && f.TopBar < 0.5 && f.MirrorSym < 0.6
	}},

	// Open shapes, strongest evidence first.
	{"tall-single-stroke", 1, 4.0, func(f Features) bool {
		return f.Holes == 0 && f.Aspect < 0.45 && f.RowRunsMax <= 1
	}},
	{"narrow-mostly-single", 1, 1.5, func(f Features) bool {
		return f.Holes == 0 && f.Aspect < 0.55 && f.RowRuns < 1.3
	}},
	{"top-bar-descender", 7, 2.5, func(f Features) bool {
		return f.Holes == 0 && f.TopBar > 0.55 && f.BottomBar < 0.4 && f.RowRuns < 1.8
	}},
	{"base-bar-curve", 2, 2.5, func(f Features) bool {
		return f.Holes == 0 && f.BottomBar > 0.55 && f.TopBar < 0.55 && f.TopMass < 0.55
	}},
	{"right-heavy-bows", 3, 2.0, func(f Features) bool {
		return f.Holes == 0 && f.LeftMass < 0.45 && f.MirrorSym < 0.6 && f.Aspect >= 0.45 && f.Aspect <= 1.1
	}},
	{"top-bar-bottom-curl", 5, 1.8, func(f Features) bool {
		return f.Holes == 0 && f.TopBar > 0.5 && f.BottomBar >= 0.35 && f.LeftMass >= 0.45
	}},
	{"crossed-strokes", 4, 1.5, func(f Features) bool {
		return f.Holes == 0 && f.RowRunsMax >= 2 && f.TopBar < 0.45 && f.BottomBar < 0.35
	}},
	{"bottom-heavy-curl", 6, 1.2, func(f Features) bool {
		return f.Holes == 0 && f.TopMass < 0.4 && f.Aspect < 0.8
	}},
	{"top-heavy-curl", 9, 1.2, func(f Features) bool {
		return f.Holes == 0 && f.TopMass > 0.6 && f.BottomBar < 0.3 && f.Aspect < 0.8 && f.TopBar <= 0.55
	}},
	{"filled-oval", 0, 0.8, func(f Features) bool {
		return f.Holes == 0 && f.Fill > 0.55 && f.MirrorSym > 0.7 && f.Aspect > 0.65
	}},
}
