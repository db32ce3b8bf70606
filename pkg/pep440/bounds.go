package pep440

// bound is one end of a version interval.
type bound struct {
	v         Version
	inclusive bool
	set       bool
}

// Satisfiable reports whether some version could satisfy every clause. It is
// a static check over the clauses alone: a false result is certain, a true
// result only means no contradiction was found.
//
//	ParseSpecifiers(">=2.0,<1.0")  // unsatisfiable
//	ParseSpecifiers("==1.0,!=1.0") // unsatisfiable
func (ss Specifiers) Satisfiable() bool {
	var lower, upper bound
	for _, s := range ss {
		if s.Op == OpEqual && !s.Wildcard {
			// An exact pin decides the question on its own.
			for _, other := range ss {
				if !other.Allows(s.Version) {
					return false
				}
			}
			return true
		}
	}
	for _, s := range ss {
		switch s.Op {
		case OpGreaterEq:
			lower = tighterLower(lower, bound{v: s.Version, inclusive: true, set: true})
		case OpGreater:
			lower = tighterLower(lower, bound{v: s.Version, set: true})
		case OpLessEq:
			upper = tighterUpper(upper, bound{v: s.Version, inclusive: true, set: true})
		case OpLess:
			upper = tighterUpper(upper, bound{v: s.Version, set: true})
		case OpCompatible:
			lower = tighterLower(lower, bound{v: s.Version, inclusive: true, set: true})
			upper = tighterUpper(upper, bound{v: bump(s.Version.Release[:len(s.Version.Release)-1], s.Version.Epoch), set: true})
		case OpEqual:
			// wildcard: [prefix.dev0, next.dev0)
			lower = tighterLower(lower, bound{v: devZero(s.Version.Release, s.Version.Epoch), inclusive: true, set: true})
			upper = tighterUpper(upper, bound{v: bump(s.Version.Release, s.Version.Epoch), set: true})
		}
	}
	if !lower.set || !upper.set {
		return true
	}
	switch c := lower.v.Compare(upper.v); {
	case c > 0:
		return false
	case c == 0:
		if !lower.inclusive || !upper.inclusive {
			return false
		}
		for _, s := range ss {
			if !s.Allows(lower.v) {
				return false
			}
		}
	}
	return true
}

func tighterLower(cur, b bound) bound {
	if !cur.set {
		return b
	}
	switch c := b.v.Compare(cur.v); {
	case c > 0:
		return b
	case c == 0 && !b.inclusive:
		return b
	}
	return cur
}

func tighterUpper(cur, b bound) bound {
	if !cur.set {
		return b
	}
	switch c := b.v.Compare(cur.v); {
	case c < 0:
		return b
	case c == 0 && !b.inclusive:
		return b
	}
	return cur
}

func devZero(release []int, epoch int) Version {
	return Version{Epoch: epoch, Release: release, Post: -1, Dev: 0}
}

// bump returns the smallest version above every version starting with
// release, e.g. 1.2 -> 1.3.dev0.
func bump(release []int, epoch int) Version {
	next := append([]int(nil), release...)
	if len(next) == 0 {
		return Version{Epoch: epoch + 1, Release: []int{0}, Post: -1, Dev: 0}
	}
	next[len(next)-1]++
	return devZero(next, epoch)
}
