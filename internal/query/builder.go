package query

const idField = "_id"

// Model accumulates a boolean constraint tree and a field projection for a
// single find or delete call.
//
// The tree grows by wrapping: appending a predicate under a combinator that
// differs from the current top-level combinator nests the existing tree and
// the new leaf inside a fresh combinator node. Chained calls are therefore
// order-dependent: Start(a).And(b).Or(c) yields
// {"$or": [{"$and": [a, b]}, c]}, not boolean-precedence grouping.
type Model struct {
	constraint M
	projection M
	includeID  bool
}

func New() *Model {
	return &Model{}
}

// Start replaces the current constraint with a single predicate leaf.
func (m *Model) Start(field string, value any, ops ...Operator) *Model {
	m.constraint = leaf(field, value, ops)
	return m
}

// And appends a predicate under $and; with no existing constraint it behaves
// like Start.
func (m *Model) And(field string, value any, ops ...Operator) *Model {
	return m.append(leaf(field, value, ops), "$and")
}

// Or appends a predicate under $or; with no existing constraint it behaves
// like Start.
func (m *Model) Or(field string, value any, ops ...Operator) *Model {
	return m.append(leaf(field, value, ops), "$or")
}

// Nor appends a predicate under $nor; with no existing constraint it behaves
// like Start.
func (m *Model) Nor(field string, value any, ops ...Operator) *Model {
	return m.append(leaf(field, value, ops), "$nor")
}

// AndModel appends another model's constraint tree as a single leaf under
// $and. Empty sub-models are ignored.
func (m *Model) AndModel(sub *Model) *Model {
	return m.appendModel(sub, "$and")
}

// OrModel appends another model's constraint tree as a single leaf under $or.
func (m *Model) OrModel(sub *Model) *Model {
	return m.appendModel(sub, "$or")
}

// NorModel appends another model's constraint tree as a single leaf under
// $nor.
func (m *Model) NorModel(sub *Model) *Model {
	return m.appendModel(sub, "$nor")
}

// Constraint returns the accumulated tree; an empty model yields an empty
// document, which the store treats as match-all.
func (m *Model) Constraint() M {
	if m.constraint == nil {
		return M{}
	}
	return m.constraint
}

// Include marks fields for projection inclusion.
func (m *Model) Include(fields ...string) *Model {
	for _, f := range fields {
		m.setProjection(f, true)
	}
	return m
}

// Exclude marks fields for projection exclusion.
func (m *Model) Exclude(fields ...string) *Model {
	for _, f := range fields {
		m.setProjection(f, false)
	}
	return m
}

// IncludeID re-includes the store identifier, which Select otherwise forces
// to excluded.
func (m *Model) IncludeID() *Model {
	m.includeID = true
	return m
}

// Select returns a copy of the projection. The identifier field is excluded
// unless IncludeID was called.
func (m *Model) Select() M {
	out := M{}
	if !m.includeID {
		out[idField] = false
	}
	for k, v := range m.projection {
		out[k] = v
	}
	return out
}

func (m *Model) append(node M, combinator string) *Model {
	if m.constraint == nil {
		m.constraint = node
		return m
	}
	if existing, ok := m.constraint[combinator]; ok {
		m.constraint[combinator] = append(existing.([]M), node)
		return m
	}
	m.constraint = M{combinator: []M{m.constraint, node}}
	return m
}

func (m *Model) appendModel(sub *Model, combinator string) *Model {
	if sub == nil || sub.constraint == nil {
		return m
	}
	return m.append(sub.constraint, combinator)
}

func (m *Model) setProjection(field string, include bool) {
	if field == idField {
		m.includeID = include
		return
	}
	if m.projection == nil {
		m.projection = M{}
	}
	m.projection[field] = include
}

func leaf(field string, value any, ops []Operator) M {
	op := Eq
	if len(ops) > 0 && ops[0] != nil {
		op = ops[0]
	}
	return M{field: op(value)}
}
