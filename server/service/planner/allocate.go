package planner

import "sort"

// allocateProportionally splits total slots across buckets in proportion to
// their weights using the largest-remainder method. Buckets with zero
// weight get zero slots; every bucket with a positive weight gets at least
// one slot when total allows, so no course or pool is starved while it
// still has candidates. The allocation never exceeds a bucket's weight
// (a bucket cannot be handed more slots than it has candidates).
func allocateProportionally(total int, weights []int) []int {
	allocation := make([]int, len(weights))
	if total <= 0 {
		return allocation
	}

	weightSum := 0
	active := 0
	for _, w := range weights {
		if w > 0 {
			weightSum += w
			active++
		}
	}
	if weightSum == 0 {
		return allocation
	}

	// Floor pass plus remainder ranking.
	type remainder struct {
		index    int
		fraction float64
	}
	remainders := []remainder{}
	assigned := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		exact := float64(total) * float64(w) / float64(weightSum)
		floor := int(exact)
		if floor > w {
			floor = w
		}
		allocation[i] = floor
		assigned += floor
		remainders = append(remainders, remainder{index: i, fraction: exact - float64(floor)})
	}

	// Hand out leftover slots by largest remainder; ties go to the lower
	// index so the result is deterministic.
	sort.SliceStable(remainders, func(i, j int) bool {
		if remainders[i].fraction != remainders[j].fraction {
			return remainders[i].fraction > remainders[j].fraction
		}
		return remainders[i].index < remainders[j].index
	})
	for _, r := range remainders {
		if assigned >= total {
			break
		}
		if allocation[r.index] < weights[r.index] {
			allocation[r.index]++
			assigned++
		}
	}

	// Guarantee representation: a bucket with candidates but zero slots
	// takes one from the largest allocation above one.
	for i, w := range weights {
		if w <= 0 || allocation[i] > 0 {
			continue
		}
		donor, donorSlots := -1, 1
		for j, slots := range allocation {
			if slots > donorSlots {
				donor, donorSlots = j, slots
			}
		}
		if donor < 0 {
			break
		}
		allocation[donor]--
		allocation[i]++
	}

	return allocation
}

// backfill distributes unused slots to pools that still have candidates,
// in the given priority order.
func backfill(unused int, taken []int, sizes []int) []int {
	for i := range taken {
		if unused <= 0 {
			break
		}
		spare := sizes[i] - taken[i]
		if spare <= 0 {
			continue
		}
		if spare > unused {
			spare = unused
		}
		taken[i] += spare
		unused -= spare
	}
	return taken
}
