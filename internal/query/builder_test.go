package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, M{"_id": false}, New().Select())
	assert.Equal(t, M{}, New().IncludeID().Select())
}

func TestSelectIncludeExclude(t *testing.T) {
	t.Parallel()

	m := New().Include("column1", "column2")
	assert.Equal(t, M{"_id": false, "column1": true, "column2": true}, m.Select())

	m = New().Exclude("column1")
	assert.Equal(t, M{"_id": false, "column1": false}, m.Select())

	// Mixed include/exclude passes through uninterpreted.
	m = New().Include("column1").Exclude("column2")
	assert.Equal(t, M{"_id": false, "column1": true, "column2": false}, m.Select())
}

func TestSelectReturnsCopy(t *testing.T) {
	t.Parallel()

	m := New().Include("column1")
	first := m.Select()
	first["column2"] = true
	assert.Equal(t, M{"_id": false, "column1": true}, m.Select())
}

func TestConstraintSingleLeaf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, M{}, New().Constraint())
	assert.Equal(t,
		M{"column1": M{"$eq": "hello"}},
		New().Start("column1", "hello").Constraint())
	assert.Equal(t,
		M{"column1": M{"$in": []string{"hello", "world"}}},
		New().Start("column1", []string{"hello", "world"}, In).Constraint())
	assert.Equal(t,
		M{"column1": M{"$not": M{"$eq": "hello"}}},
		New().Start("column1", "hello", Not(Eq)).Constraint())
	assert.Equal(t,
		M{"column1": M{"$regex": "hello"}},
		New().Start("column1", "hello", Regex()).Constraint())
	assert.Equal(t,
		M{"column1": M{"$regex": "hello", "$options": "i"}},
		New().Start("column1", "hello", Regex("i")).Constraint())
}

func TestConstraintCombinators(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		M{"$and": []M{
			{"a": M{"$eq": 1}},
			{"b": M{"$eq": 2}},
		}},
		New().Start("a", 1).And("b", 2).Constraint())

	assert.Equal(t,
		M{"$or": []M{
			{"a": M{"$eq": 1}},
			{"b": M{"$eq": 2}},
		}},
		New().Start("a", 1).Or("b", 2).Constraint())

	assert.Equal(t,
		M{"$nor": []M{
			{"a": M{"$eq": 1}},
			{"b": M{"$eq": 2}},
		}},
		New().Start("a", 1).Nor("b", 2).Constraint())

	// Matching combinator appends to the existing list.
	assert.Equal(t,
		M{"$and": []M{
			{"a": M{"$eq": 1}},
			{"b": M{"$eq": 2}},
			{"c": M{"$eq": 3}},
		}},
		New().Start("a", 1).And("b", 2).And("c", 3).Constraint())
}

func TestConstraintWrapsOnCombinatorChange(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		M{"$or": []M{
			{"$and": []M{
				{"a": M{"$eq": 1}},
				{"b": M{"$eq": 2}},
			}},
			{"c": M{"$eq": 3}},
		}},
		New().Start("a", 1).And("b", 2).Or("c", 3).Constraint())

	// Call order matters: or-then-and is structurally different.
	assert.Equal(t,
		M{"$and": []M{
			{"$or": []M{
				{"a": M{"$eq": 1}},
				{"b": M{"$eq": 2}},
			}},
			{"c": M{"$eq": 3}},
		}},
		New().Start("a", 1).Or("b", 2).And("c", 3).Constraint())
}

func TestCombinatorWithoutStart(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		M{"a": M{"$eq": 1}},
		New().And("a", 1).Constraint())
	assert.Equal(t,
		M{"a": M{"$eq": 1}},
		New().Or("a", 1).Constraint())
}

func TestSubModelComposition(t *testing.T) {
	t.Parallel()

	pattern := New().
		Start("last_name", "^wollam", Regex("i")).
		And("first_name", "^c.*", Regex("i"))

	m := New().Start("team", []string{"KC"}, In).AndModel(pattern)
	assert.Equal(t,
		M{"$and": []M{
			{"team": M{"$in": []string{"KC"}}},
			{"$and": []M{
				{"last_name": M{"$regex": "^wollam", "$options": "i"}},
				{"first_name": M{"$regex": "^c.*", "$options": "i"}},
			}},
		}},
		m.Constraint())

	// Empty sub-models are ignored.
	m = New().Start("a", 1).AndModel(New())
	assert.Equal(t, M{"a": M{"$eq": 1}}, m.Constraint())
}
