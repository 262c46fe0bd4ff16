package plem

// Pair is two sites whose linkage disequilibrium is to be estimated.
type Pair struct {
	A, B *Site
}

// AdjacentPairs pairs every site with the site before it on the same
// chromosome.
func AdjacentPairs(sites []*Site) []Pair {
	var pairs []Pair
	for i := 1; i < len(sites); i++ {
		if sites[i-1].Chromosome != sites[i].Chromosome {
			continue
		}
		pairs = append(pairs, Pair{A: sites[i-1], B: sites[i]})
	}
	return pairs
}

// WindowPairs returns every pair of sites on the same chromosome whose
// positions are at most maxDistance apart. Sites must be grouped by
// chromosome and sorted by position within each chromosome.
func WindowPairs(sites []*Site, maxDistance uint32) []Pair {
	var pairs []Pair
	for i, a := range sites {
		for _, b := range sites[i+1:] {
			if b.Chromosome != a.Chromosome || b.Position-a.Position > maxDistance {
				break
			}
			pairs = append(pairs, Pair{A: a, B: b})
		}
	}
	return pairs
}
