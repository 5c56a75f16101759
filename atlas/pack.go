package atlas

import (
	"context"

	"github.com/bodgit/spritedice/contenthash"
	"github.com/bodgit/spritedice/tile"
)

// incrementalCost counts the unique units of t not already in packed.
func incrementalCost(t *tile.Texture, packed map[contenthash.Hash]struct{}) (n int) {
	for _, u := range t.Unique {
		if _, ok := packed[u.Hash]; !ok {
			n++
		}
	}
	return
}

// selectRound picks the textures for a single atlas. remaining holds
// indices into textures and is not modified. The picked indices are
// returned in the order they were chosen along with the round's unique
// units in placement order. Ties in cost go to the earliest index in
// remaining.
func selectRound(textures []*tile.Texture, remaining []int, budget int) ([]int, []tile.Unit) {
	left := append(remaining[:0:0], remaining...)
	packed := make(map[contenthash.Hash]struct{})

	var (
		picked []int
		units  []tile.Unit
	)

	for len(left) > 0 {
		best, bestCost := -1, 0
		for i, idx := range left {
			if cost := incrementalCost(textures[idx], packed); best < 0 || cost < bestCost {
				best, bestCost = i, cost
			}
		}

		if len(packed)+bestCost > budget {
			break
		}

		t := textures[left[best]]
		for _, u := range t.Unique {
			if _, ok := packed[u.Hash]; !ok {
				packed[u.Hash] = struct{}{}
				units = append(units, u)
			}
		}

		picked = append(picked, left[best])
		left = append(left[:best], left[best+1:]...)
	}

	return picked, units
}

// without returns the indices in remaining that are not in picked,
// preserving order.
func without(remaining, picked []int) []int {
	drop := make(map[int]struct{}, len(picked))
	for _, i := range picked {
		drop[i] = struct{}{}
	}
	out := remaining[:0:0]
	for _, i := range remaining {
		if _, ok := drop[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Pack lays out the unique units of textures into as many atlases as
// needed. The context is checked between rounds. Either every texture is
// packed or an error is returned and no atlases are.
func Pack(ctx context.Context, textures []*tile.Texture, opts Options) ([]*Atlas, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	budget := opts.Budget()

	remaining := make([]int, len(textures))
	for i := range remaining {
		remaining[i] = i
	}

	var atlases []*Atlas
	placed := 0

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		picked, units := selectRound(textures, remaining, budget)
		if len(picked) == 0 {
			// Nothing has been packed this round so the cheapest
			// texture is simply the one with the fewest unique units
			worst := textures[remaining[0]]
			for _, i := range remaining[1:] {
				if len(textures[i].Unique) < len(worst.Unique) {
					worst = textures[i]
				}
			}
			var id string
			if worst.Source != nil {
				id = worst.Source.ID
			}
			return nil, &UnpackableError{
				ID:     id,
				Units:  len(worst.Unique),
				Budget: budget,
			}
		}

		a := layout(units, opts)
		for _, i := range picked {
			a.Textures = append(a.Textures, textures[i])
		}
		atlases = append(atlases, a)

		remaining = without(remaining, picked)
		placed += len(picked)

		if opts.Progress != nil {
			opts.Progress(len(atlases), placed, len(textures))
		}
	}

	return atlases, nil
}
