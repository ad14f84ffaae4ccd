package collab

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"lessonrec/internal/core"
)

// Options controls ALS training.
type Options struct {
	Factors        int     // Latent factor width (default 64)
	Iterations     int     // Alternating sweeps (default 20)
	Regularization float64 // Ridge term λ (default 0.01)
	Seed           int64   // RNG seed for factor initialization (default 42)
}

func (o Options) withDefaults() Options {
	if o.Factors <= 0 {
		o.Factors = 64
	}
	if o.Iterations <= 0 {
		o.Iterations = 20
	}
	if o.Regularization <= 0 {
		o.Regularization = 0.01
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	return o
}

// Interactions is the binary user×item implicit-feedback matrix in sparse
// row form, with its axis identifier maps. Users are ordered
// lexicographically, items keep catalog order, so the same event log always
// produces the same matrix.
type Interactions struct {
	UserIDs []string
	ItemIDs []string
	Rows    []map[int]float64 // Per user: item column → 1.0
}

// BuildInteractions assembles the interaction matrix from the event log.
// Events referencing items outside itemIDs are dropped. Duplicate
// user/item pairs collapse to a single observation.
func BuildInteractions(events []core.Interaction, itemIDs []string) *Interactions {
	itemIdx := make(map[string]int, len(itemIDs))
	for i, id := range itemIDs {
		itemIdx[id] = i
	}

	userSet := make(map[string]bool)
	for _, ev := range events {
		if _, ok := itemIdx[ev.ItemID]; ok && ev.UserID != "" {
			userSet[ev.UserID] = true
		}
	}
	userIDs := make([]string, 0, len(userSet))
	for u := range userSet {
		userIDs = append(userIDs, u)
	}
	sort.Strings(userIDs)
	userIdx := make(map[string]int, len(userIDs))
	for i, u := range userIDs {
		userIdx[u] = i
	}

	rows := make([]map[int]float64, len(userIDs))
	for i := range rows {
		rows[i] = make(map[int]float64)
	}
	for _, ev := range events {
		u, okU := userIdx[ev.UserID]
		i, okI := itemIdx[ev.ItemID]
		if okU && okI {
			rows[u][i] = 1.0
		}
	}

	return &Interactions{UserIDs: userIDs, ItemIDs: itemIDs, Rows: rows}
}

// ComputePopularity counts events per item and scales by the maximum, so
// every score lands in [0,1]. Events for unknown items are ignored. An
// empty log yields an empty table.
func ComputePopularity(events []core.Interaction, validItems map[string]bool) map[string]float64 {
	counts := make(map[string]float64)
	var max float64
	for _, ev := range events {
		if !validItems[ev.ItemID] {
			continue
		}
		counts[ev.ItemID]++
		if counts[ev.ItemID] > max {
			max = counts[ev.ItemID]
		}
	}
	if max == 0 {
		return map[string]float64{}
	}
	for id := range counts {
		counts[id] /= max
	}
	return counts
}

// Train fits user and item factor matrices by alternating least squares on
// the binary interaction matrix. Each sweep solves the regularized normal
// equations per row, so training is deterministic for a given seed. An
// empty matrix on either axis yields an empty but well-formed model.
func Train(inter *Interactions, opts Options) (*Model, error) {
	opts = opts.withDefaults()
	nUsers, nItems := len(inter.UserIDs), len(inter.ItemIDs)

	model := &Model{
		U:       make([][]float64, nUsers),
		V:       make([][]float64, nItems),
		UserIDs: inter.UserIDs,
		ItemIDs: inter.ItemIDs,
	}
	if nUsers == 0 || nItems == 0 {
		return model, nil
	}

	f := opts.Factors
	rng := rand.New(rand.NewSource(opts.Seed))
	for i := range model.U {
		model.U[i] = make([]float64, f)
	}
	for i := range model.V {
		model.V[i] = randomRow(rng, f)
	}

	// Invert the user rows to per-item observation lists for the item sweep.
	byItem := make([][]int, nItems)
	for u, row := range inter.Rows {
		for i := range row {
			byItem[i] = append(byItem[i], u)
		}
	}
	byUser := make([][]int, nUsers)
	for u, row := range inter.Rows {
		cols := make([]int, 0, len(row))
		for i := range row {
			cols = append(cols, i)
		}
		sort.Ints(cols)
		byUser[u] = cols
	}

	for it := 0; it < opts.Iterations; it++ {
		if err := solveSide(model.U, model.V, byUser, opts.Regularization); err != nil {
			return nil, fmt.Errorf("als user sweep %d: %w", it, err)
		}
		if err := solveSide(model.V, model.U, byItem, opts.Regularization); err != nil {
			return nil, fmt.Errorf("als item sweep %d: %w", it, err)
		}
	}
	return model, nil
}

func randomRow(rng *rand.Rand, f int) []float64 {
	row := make([]float64, f)
	for i := range row {
		row[i] = rng.NormFloat64() * 0.01
	}
	return row
}

// solveSide updates every row of target by solving
// (fixedᵀ·fixed + λI) x = Σ observed fixed rows, the least-squares optimum
// for binary observations with zeros counted.
func solveSide(target, fixed [][]float64, observed [][]int, lambda float64) error {
	f := len(fixed[0])

	// Gram matrix fixedᵀ·fixed + λI, shared across rows.
	gram := mat.NewSymDense(f, nil)
	for _, row := range fixed {
		for a := 0; a < f; a++ {
			for b := a; b < f; b++ {
				gram.SetSym(a, b, gram.At(a, b)+row[a]*row[b])
			}
		}
	}
	for a := 0; a < f; a++ {
		gram.SetSym(a, a, gram.At(a, a)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return fmt.Errorf("gram matrix not positive definite")
	}

	b := mat.NewVecDense(f, nil)
	var x mat.VecDense
	for r := range target {
		for a := 0; a < f; a++ {
			b.SetVec(a, 0)
		}
		for _, o := range observed[r] {
			row := fixed[o]
			for a := 0; a < f; a++ {
				b.SetVec(a, b.AtVec(a)+row[a])
			}
		}
		if err := chol.SolveVecTo(&x, b); err != nil {
			return err
		}
		for a := 0; a < f; a++ {
			target[r][a] = x.AtVec(a)
		}
	}
	return nil
}
