package world

import "sort"

// QueryBuilder intersects component stores to find entities with a given
// component signature. Results are sorted by entity id so that every pass
// over the same signature visits bodies in the same order.
type QueryBuilder struct {
	with     []AnyStore
	without  []AnyStore
	executed bool
	results  []Entity
}

// Query starts a new query.
//
//	dynamics := w.Query().With(w.Pos).With(w.Mass).Execute()
func (w *World) Query() *QueryBuilder {
	return &QueryBuilder{
		with: make([]AnyStore, 0, 4),
	}
}

// With requires the component held by store.
// Panics if called after Execute.
func (qb *QueryBuilder) With(store AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.with = append(qb.with, store)
	return qb
}

// Without excludes entities holding the component in store.
func (qb *QueryBuilder) Without(store AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.without = append(qb.without, store)
	return qb
}

// Execute runs the query. Repeated calls return the cached result.
func (qb *QueryBuilder) Execute() []Entity {
	if qb.executed {
		return qb.results
	}
	qb.executed = true

	if len(qb.with) == 0 {
		qb.results = make([]Entity, 0)
		return qb.results
	}

	// smallest store first keeps the Has() checks down
	sort.Slice(qb.with, func(i, j int) bool {
		return qb.with[i].Count() < qb.with[j].Count()
	})

	candidates := qb.with[0].All()
	for i := 1; i < len(qb.with) && len(candidates) > 0; i++ {
		store := qb.with[i]
		filtered := candidates[:0]
		for _, e := range candidates {
			if store.Has(e) {
				filtered = append(filtered, e)
			}
		}
		candidates = filtered
	}

	if len(qb.without) > 0 {
		filtered := candidates[:0]
	next:
		for _, e := range candidates {
			for _, store := range qb.without {
				if store.Has(e) {
					continue next
				}
			}
			filtered = append(filtered, e)
		}
		candidates = filtered
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	qb.results = candidates
	return qb.results
}
