package query

// M is a constraint or projection document in the store's native filter
// syntax. Combinator values are []M, operator leaves are M.
type M = map[string]any

// Operator wraps a comparison value into its filter form, e.g.
// Eq(5) -> {"$eq": 5}.
type Operator func(value any) M

var (
	Eq  Operator = func(v any) M { return M{"$eq": v} }
	Ne  Operator = func(v any) M { return M{"$ne": v} }
	In  Operator = func(v any) M { return M{"$in": v} }
	Nin Operator = func(v any) M { return M{"$nin": v} }
	Gt  Operator = func(v any) M { return M{"$gt": v} }
	Gte Operator = func(v any) M { return M{"$gte": v} }
	Lt  Operator = func(v any) M { return M{"$lt": v} }
	Lte Operator = func(v any) M { return M{"$lte": v} }
)

// Regex builds a pattern-match operator. Options follow the store's regex
// option flags ("i" for case-insensitive); with no options the $options key
// is omitted entirely.
func Regex(options ...string) Operator {
	return func(v any) M {
		m := M{"$regex": v}
		if len(options) > 0 && options[0] != "" {
			m["$options"] = options[0]
		}
		return m
	}
}

// Not negates any operator: Not(Eq)(5) -> {"$not": {"$eq": 5}}.
func Not(op Operator) Operator {
	return func(v any) M {
		return M{"$not": op(v)}
	}
}
