package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cxgraph/graph"
)

// newExec returns an executor over a fresh store, with the store exposed for
// direct inspection.
func newExec(t *testing.T) (*Executor, *graph.Store) {
	t.Helper()
	s := graph.NewStore()
	return NewExecutor(s), s
}

// seedPeople loads the fixture used by most read tests.
func seedPeople(t *testing.T, e *Executor) {
	t.Helper()
	queries := []string{
		"CREATE (n:Person {name: 'Alice', age: 30, city: 'Oslo'})",
		"CREATE (n:Person {name: 'Bob', age: 25, city: 'Bergen'})",
		"CREATE (n:Person {name: 'Carol', age: 35, city: 'Oslo'})",
		"CREATE (n:Company {name: 'Acme'})",
	}
	for _, q := range queries {
		_, err := e.Execute(q)
		require.NoError(t, err)
	}
}

func column(t *testing.T, res *Result, col string) []graph.Value {
	t.Helper()
	out := make([]graph.Value, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, ok := row[col]
		require.True(t, ok, "column %s missing", col)
		out = append(out, v)
	}
	return out
}

func TestExecuteCreate(t *testing.T) {
	t.Run("single node", func(t *testing.T) {
		e, s := newExec(t)
		res, err := e.Execute("CREATE (n:Person {name: 'Alice', age: 30})")
		require.NoError(t, err)
		assert.Equal(t, ResultCreated, res.Kind)
		require.Len(t, res.CreatedIDs, 1)

		node, ok := s.GetNode(res.CreatedIDs[0])
		require.True(t, ok)
		assert.Equal(t, "Alice", node.Properties["name"].Str)
		assert.Equal(t, graph.Int64(30), node.Properties["age"])
	})

	t.Run("path creates nodes and edge", func(t *testing.T) {
		e, s := newExec(t)
		res, err := e.Execute("CREATE (a:Person {name: 'Alice'})-[:KNOWS {since: 2020}]->(b:Person {name: 'Bob'})")
		require.NoError(t, err)
		assert.Len(t, res.CreatedIDs, 2)
		assert.Equal(t, 2, s.NodeCount())
		require.Equal(t, 1, s.EdgeCount())

		edge := s.Edges()[0]
		assert.Equal(t, "KNOWS", edge.Type)
		assert.Equal(t, graph.Int64(2020), edge.Properties["since"])
	})

	t.Run("node without name gets one", func(t *testing.T) {
		e, s := newExec(t)
		res, err := e.Execute("CREATE (n:Person {age: 30})")
		require.NoError(t, err)
		node, _ := s.GetNode(res.CreatedIDs[0])
		assert.NotEmpty(t, node.Name)
	})
}

func TestExecuteMatch(t *testing.T) {
	t.Run("filter and project properties", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) WHERE n.age > 26 RETURN n.name, n.age")
		require.NoError(t, err)
		assert.Equal(t, ResultRows, res.Kind)
		assert.Equal(t, []string{"n.name", "n.age"}, res.Columns)
		assert.ElementsMatch(t,
			[]graph.Value{graph.String("Alice"), graph.String("Carol")},
			column(t, res, "n.name"))
	})

	t.Run("bare identifier projects node name", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Company) RETURN n")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("Acme"), res.Rows[0]["n"])
	})

	t.Run("unlabeled pattern matches everything", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n) RETURN n")
		require.NoError(t, err)
		assert.Len(t, res.Rows, 4)
	})

	t.Run("inline properties constrain the match", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person {city: 'Oslo'}) RETURN n.name")
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
	})

	t.Run("missing property makes conditions false", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		// Acme has no age, so it fails both branches without erroring.
		res, err := e.Execute("MATCH (n) WHERE n.age > 0 OR n.age < 0 RETURN n.name")
		require.NoError(t, err)
		assert.Len(t, res.Rows, 3)
	})

	t.Run("numeric cross-type equality", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) WHERE n.age = 30.0 RETURN n.name")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("Alice"), res.Rows[0]["n.name"])
	})

	t.Run("null checks", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n) WHERE n.age IS NULL RETURN n.name")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("Acme"), res.Rows[0]["n.name"])
	})
}

func TestExecuteRelationshipMatch(t *testing.T) {
	seedGraph := func(t *testing.T) (*Executor, *graph.Store) {
		e, s := newExec(t)
		alice, err := s.AddNode("Alice", "Person", graph.Properties{"name": graph.String("Alice")})
		require.NoError(t, err)
		bob, err := s.AddNode("Bob", "Person", graph.Properties{"name": graph.String("Bob")})
		require.NoError(t, err)
		acme, err := s.AddNode("Acme", "Company", graph.Properties{"name": graph.String("Acme")})
		require.NoError(t, err)
		require.NoError(t, s.AddEdge(alice, bob, "KNOWS", graph.Properties{"since": graph.Int64(2020)}))
		require.NoError(t, s.AddEdge(alice, acme, "WORKS_AT", nil))
		return e, s
	}

	t.Run("directed with type", func(t *testing.T) {
		e, _ := seedGraph(t)
		res, err := e.Execute("MATCH (a)-[r:KNOWS]->(b) RETURN a, b")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("Alice"), res.Rows[0]["a"])
		assert.Equal(t, graph.String("Bob"), res.Rows[0]["b"])
	})

	t.Run("direction follows the arrow", func(t *testing.T) {
		e, _ := seedGraph(t)
		res, err := e.Execute("MATCH (a:Person {name: 'Bob'})-[r:KNOWS]->(b) RETURN b")
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
	})

	t.Run("undirected matches either endpoint", func(t *testing.T) {
		e, _ := seedGraph(t)
		res, err := e.Execute("MATCH (a:Person {name: 'Bob'})-[r:KNOWS]-(b) RETURN b")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("Alice"), res.Rows[0]["b"])
	})

	t.Run("relationship identifier projects its type", func(t *testing.T) {
		e, _ := seedGraph(t)
		res, err := e.Execute("MATCH (a)-[r:WORKS_AT]->(b) RETURN r, type(r)")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.String("WORKS_AT"), res.Rows[0]["r"])
		assert.Equal(t, graph.String("WORKS_AT"), res.Rows[0]["type(r)"])
	})

	t.Run("relationship property filter", func(t *testing.T) {
		e, _ := seedGraph(t)
		res, err := e.Execute("MATCH (a)-[r:KNOWS]->(b) WHERE r.since >= 2021 RETURN b")
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
	})
}

func TestExecuteDelete(t *testing.T) {
	t.Run("bound identifier form", func(t *testing.T) {
		e, s := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) WHERE n.age < 28 DELETE n")
		require.NoError(t, err)
		assert.Equal(t, ResultDeleted, res.Kind)
		assert.Equal(t, 1, res.Deleted)
		assert.Equal(t, 3, s.NodeCount())

		left, err := e.Execute("MATCH (n) WHERE n.name = 'Bob' RETURN n")
		require.NoError(t, err)
		assert.Empty(t, left.Rows)
	})

	t.Run("pattern form picks among duplicate names", func(t *testing.T) {
		e, _ := newExec(t)
		for _, q := range []string{
			"CREATE (n:Person {name: 'John', age: 30})",
			"CREATE (n:Person {name: 'John', age: 25})",
			"CREATE (n:Person {name: 'Jane', age: 30})",
		} {
			_, err := e.Execute(q)
			require.NoError(t, err)
		}
		res, err := e.Execute("DELETE (n) WHERE n.name = 'John' AND n.age = 30")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Deleted)

		rest, err := e.Execute("MATCH (n) WHERE n.name = 'John' RETURN n")
		require.NoError(t, err)
		require.Len(t, rest.Rows, 1)
		age, err := e.Execute("MATCH (n) WHERE n.name = 'John' RETURN n.age")
		require.NoError(t, err)
		assert.Equal(t, graph.Int64(25), age.Rows[0]["n.age"])
	})

	t.Run("pattern form matches store-wide", func(t *testing.T) {
		e, s := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("DELETE (n:Person) WHERE n.city = 'Oslo'")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Deleted)
		assert.Equal(t, 2, s.NodeCount())
	})

	t.Run("plain delete leaves edges alone", func(t *testing.T) {
		e, s := newExec(t)
		_, err := e.Execute("CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})")
		require.NoError(t, err)
		_, err = e.Execute("MATCH (n:Person {name: 'Alice'}) DELETE n")
		require.NoError(t, err)
		// The edge survives as a dangling reference.
		assert.Equal(t, 1, s.EdgeCount())
	})

	t.Run("detach delete removes touching edges", func(t *testing.T) {
		e, s := newExec(t)
		_, err := e.Execute("CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})")
		require.NoError(t, err)
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) DETACH DELETE n")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Deleted)
		assert.Equal(t, 0, s.EdgeCount())
		assert.Equal(t, 1, s.NodeCount())
	})

	t.Run("relationship target deletes the edge", func(t *testing.T) {
		e, s := newExec(t)
		_, err := e.Execute("CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})")
		require.NoError(t, err)
		// The undirected match binds the same edge from both endpoints;
		// it is still deleted exactly once.
		res, err := e.Execute("MATCH (a)-[r:KNOWS]-(b) DELETE r")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Deleted)
		assert.Equal(t, 0, s.EdgeCount())
		assert.Equal(t, 2, s.NodeCount())
	})

	t.Run("no matches deletes nothing", func(t *testing.T) {
		e, s := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("DELETE (n:Robot)")
		require.NoError(t, err)
		assert.Equal(t, 0, res.Deleted)
		assert.Equal(t, 4, s.NodeCount())
	})
}

func TestExecuteOrderByAndLimit(t *testing.T) {
	t.Run("mixed directions per key", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN n.city, n.age ORDER BY n.city ASC, n.age DESC")
		require.NoError(t, err)
		assert.Equal(t, []graph.Value{
			graph.String("Bergen"), graph.String("Oslo"), graph.String("Oslo"),
		}, column(t, res, "n.city"))
		assert.Equal(t, []graph.Value{
			graph.Int64(25), graph.Int64(35), graph.Int64(30),
		}, column(t, res, "n.age"))
	})

	t.Run("order by alias", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN n.name AS who ORDER BY who DESC")
		require.NoError(t, err)
		assert.Equal(t, []graph.Value{
			graph.String("Carol"), graph.String("Bob"), graph.String("Alice"),
		}, column(t, res, "who"))
	})

	t.Run("order by unprojected property", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN n.name ORDER BY n.age")
		require.NoError(t, err)
		assert.Equal(t, []graph.Value{
			graph.String("Bob"), graph.String("Alice"), graph.String("Carol"),
		}, column(t, res, "n.name"))
	})

	t.Run("limit truncates", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN n.name ORDER BY n.name LIMIT 2")
		require.NoError(t, err)
		assert.Equal(t, []graph.Value{
			graph.String("Alice"), graph.String("Bob"),
		}, column(t, res, "n.name"))
	})

	t.Run("limit larger than result set", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN n LIMIT 100")
		require.NoError(t, err)
		assert.Len(t, res.Rows, 3)
	})
}

func TestExecuteDistinct(t *testing.T) {
	e, _ := newExec(t)
	seedPeople(t, e)
	res, err := e.Execute("MATCH (n:Person) RETURN DISTINCT n.city")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]graph.Value{graph.String("Oslo"), graph.String("Bergen")},
		column(t, res, "n.city"))
}

func TestExecuteAggregates(t *testing.T) {
	t.Run("collapse to one row", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) RETURN count(n), sum(n.age), avg(n.age), min(n.age), max(n.age)")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		row := res.Rows[0]
		assert.Equal(t, graph.Int64(3), row["count(n)"])
		assert.Equal(t, graph.Float64(90), row["sum(n.age)"])
		assert.Equal(t, graph.Float64(30), row["avg(n.age)"])
		assert.Equal(t, graph.Int64(25), row["min(n.age)"])
		assert.Equal(t, graph.Int64(35), row["max(n.age)"])
	})

	t.Run("count skips rows without the value", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n) RETURN count(n.age)")
		require.NoError(t, err)
		assert.Equal(t, graph.Int64(3), res.Rows[0]["count(n.age)"])
	})

	t.Run("collect renders a list", func(t *testing.T) {
		e, _ := newExec(t)
		seedPeople(t, e)
		res, err := e.Execute("MATCH (n:Person) WHERE n.city = 'Oslo' RETURN collect(n.name)")
		require.NoError(t, err)
		assert.Equal(t, graph.String("[Alice, Carol]"), res.Rows[0]["collect(n.name)"])
	})

	t.Run("empty input aggregates", func(t *testing.T) {
		e, _ := newExec(t)
		res, err := e.Execute("MATCH (n) RETURN count(n)")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, graph.Int64(0), res.Rows[0]["count(n)"])
	})
}

func TestExecuteScalarFunctions(t *testing.T) {
	e, _ := newExec(t)
	seedPeople(t, e)

	t.Run("length", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN length(n.name)")
		require.NoError(t, err)
		assert.Equal(t, graph.Int64(5), res.Rows[0]["length(n.name)"])
	})

	t.Run("id", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN id(n)")
		require.NoError(t, err)
		assert.Equal(t, graph.KindInt, res.Rows[0]["id(n)"].Kind)
	})

	t.Run("conversions", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN toFloat(n.age), toString(n.age)")
		require.NoError(t, err)
		assert.Equal(t, graph.Float64(30), res.Rows[0]["toFloat(n.age)"])
		assert.Equal(t, graph.String("30"), res.Rows[0]["toString(n.age)"])
	})
}

func TestExecuteStringOperators(t *testing.T) {
	e, _ := newExec(t)
	seedPeople(t, e)

	tests := []struct {
		query string
		want  []graph.Value
	}{
		{
			"MATCH (n:Person) WHERE n.name STARTS WITH 'A' RETURN n.name",
			[]graph.Value{graph.String("Alice")},
		},
		{
			"MATCH (n:Person) WHERE n.name ENDS WITH 'ol' RETURN n.name",
			[]graph.Value{graph.String("Carol")},
		},
		{
			"MATCH (n:Person) WHERE n.name CONTAINS 'o' RETURN n.name",
			[]graph.Value{graph.String("Bob"), graph.String("Carol")},
		},
	}
	for _, tt := range tests {
		res, err := e.Execute(tt.query)
		require.NoError(t, err, "query %q", tt.query)
		assert.ElementsMatch(t, tt.want, column(t, res, "n.name"), "query %q", tt.query)
	}

	t.Run("string operator on number is false", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person) WHERE n.age CONTAINS '3' RETURN n.name")
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
	})
}

func TestExecuteConcatenation(t *testing.T) {
	e, _ := newExec(t)
	seedPeople(t, e)

	t.Run("strings concatenate", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN n.name + '!' AS shout")
		require.NoError(t, err)
		assert.Equal(t, graph.String("Alice!"), res.Rows[0]["shout"])
	})

	t.Run("integers stay integers", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN n.age + 1 AS older")
		require.NoError(t, err)
		assert.Equal(t, graph.Int64(31), res.Rows[0]["older"])
	})

	t.Run("mixed numerics widen to float", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN n.age + 0.5 AS older")
		require.NoError(t, err)
		assert.Equal(t, graph.Float64(30.5), res.Rows[0]["older"])
	})

	t.Run("mixed kinds drop the column", func(t *testing.T) {
		res, err := e.Execute("MATCH (n:Person {name: 'Alice'}) RETURN n.name + n.age AS bad")
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		_, ok := res.Rows[0]["bad"]
		assert.False(t, ok)
	})
}

func TestExecutePipelineErrors(t *testing.T) {
	e, _ := newExec(t)
	seedPeople(t, e)

	t.Run("syntax error surfaces", func(t *testing.T) {
		_, err := e.Execute("MATCH (n:Person)")
		var synErr *SyntaxError
		require.ErrorAs(t, err, &synErr)
	})

	t.Run("semantic error stops before execution", func(t *testing.T) {
		_, err := e.Execute("MATCH (n) RETURN frobnicate(n)")
		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr)
	})

	t.Run("lexical error surfaces", func(t *testing.T) {
		_, err := e.Execute("MATCH (n) WHERE n.x = $param RETURN n")
		var lexErr *LexError
		require.ErrorAs(t, err, &lexErr)
	})
}

func TestExecuteMultiHop(t *testing.T) {
	e, s := newExec(t)
	_, err := e.Execute("CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})-[:WORKS_AT]->(c:Company {name: 'Acme'})")
	require.NoError(t, err)
	require.Equal(t, 3, s.NodeCount())
	require.Equal(t, 2, s.EdgeCount())

	res, err := e.Execute("MATCH (a:Person)-[:KNOWS]->(b)-[:WORKS_AT]->(c) RETURN a, c")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, graph.String("Alice"), res.Rows[0]["a"])
	assert.Equal(t, graph.String("Acme"), res.Rows[0]["c"])
}
