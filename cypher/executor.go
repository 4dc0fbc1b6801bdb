package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"cxgraph/graph"
)

// Store is the graph store contract the executor consumes. Operations are
// synchronous and immediately visible to subsequent reads within the same
// Execute call.
type Store interface {
	AddNode(name, label string, props graph.Properties) (int64, error)
	GetNode(id int64) (*graph.Node, bool)
	AddEdge(sourceID, targetID int64, relType string, props graph.Properties) error
	Nodes() []*graph.Node
	Edges() []*graph.Edge
	DeleteNode(id int64) error
	DeleteEdge(sourceID, targetID int64, relType string) error
}

// ResultKind discriminates what a query produced.
type ResultKind int

const (
	ResultRows ResultKind = iota
	ResultCreated
	ResultDeleted
)

// Row maps output column names to scalar values. A column whose expression
// could not be evaluated for the row (missing property) is absent.
type Row map[string]graph.Value

// Result is the outcome of one executed query.
type Result struct {
	Kind       ResultKind
	Columns    []string
	Rows       []Row
	CreatedIDs []int64
	Deleted    int
}

// Executor interprets validated queries against a Store. Clauses run strictly
// in source order; MATCH, CREATE and DELETE establish or replace the active
// row set, RETURN projects it, ORDER BY and LIMIT post-process the projection.
type Executor struct {
	store Store
	log   *logrus.Entry
}

// NewExecutor initializes an Executor over the given store.
func NewExecutor(store Store) *Executor {
	return &Executor{
		store: store,
		log:   logrus.WithField("component", "Executor"),
	}
}

// Execute runs the full pipeline on a query string: lex, parse, analyze,
// interpret. The first failing stage aborts the call.
func (e *Executor) Execute(query string) (*Result, error) {
	ast, err := Parse(query)
	if err != nil {
		return nil, err
	}
	if err := Analyze(ast); err != nil {
		return nil, err
	}
	return e.Run(ast)
}

// entity is one bound graph element inside a row.
type entity struct {
	node *graph.Node
	edge *graph.Edge
}

// bindingRow maps pattern identifiers to the elements they matched.
type bindingRow map[string]entity

// projRow is a projected output row that keeps its source bindings so a later
// ORDER BY can evaluate expressions the projection did not include.
type projRow struct {
	cells Row
	src   bindingRow
}

type projection struct {
	columns []string
	rows    []projRow
}

// Run interprets an analyzed AST.
func (e *Executor) Run(q *Query) (*Result, error) {
	var (
		active     []bindingRow
		proj       *projection
		createdIDs []int64
		deleted    int
		kind       = ResultCreated
		sawDelete  bool
		sawReturn  bool
	)
	for _, clause := range q.Clauses {
		switch c := clause.(type) {
		case *MatchClause:
			rows := e.matchPattern(c.Pattern)
			if c.Where != nil {
				rows = filterRows(rows, c.Where)
			}
			active = rows
		case *CreateClause:
			ids, row, err := e.executeCreate(c)
			if err != nil {
				return nil, err
			}
			createdIDs = append(createdIDs, ids...)
			active = []bindingRow{row}
		case *DeleteClause:
			n, err := e.executeDelete(c, active)
			if err != nil {
				return nil, err
			}
			deleted += n
			sawDelete = true
			active = nil
		case *ReturnClause:
			proj = e.executeReturn(c, active)
			sawReturn = true
		case *OrderByClause:
			if proj != nil {
				e.orderBy(proj, c.Items)
			}
		case *LimitClause:
			if proj != nil && int64(len(proj.rows)) > c.N {
				proj.rows = proj.rows[:c.N]
			}
		}
	}
	switch {
	case sawReturn:
		kind = ResultRows
	case sawDelete:
		kind = ResultDeleted
	}
	res := &Result{
		Kind:       kind,
		CreatedIDs: createdIDs,
		Deleted:    deleted,
	}
	if proj != nil {
		res.Columns = proj.columns
		res.Rows = make([]Row, len(proj.rows))
		for i, r := range proj.rows {
			res.Rows[i] = r.cells
		}
	}
	e.log.WithFields(logrus.Fields{
		"rows":    len(res.Rows),
		"created": len(res.CreatedIDs),
		"deleted": res.Deleted,
	}).Debug("Query executed")
	return res, nil
}

// matchPattern resolves a pattern chain by constrained left-to-right nested
// matching: candidates seed from the first node pattern, then each
// relationship segment extends the path through the first edge that fits. No
// backtracking happens once a segment commits, so this is a bounded join, not
// general subgraph isomorphism.
func (e *Executor) matchPattern(pattern []PatternElement) []bindingRow {
	first, ok := pattern[0].(*NodePattern)
	if !ok {
		return nil
	}
	var rows []bindingRow
	for _, seed := range e.store.Nodes() {
		if !nodeMatches(seed, first) {
			continue
		}
		row := bindingRow{}
		if first.Identifier != "" {
			row[first.Identifier] = entity{node: seed}
		}
		cur := seed
		alive := true
		for i := 1; i+1 < len(pattern); i += 2 {
			rel := pattern[i].(*RelationshipPattern)
			next := pattern[i+1].(*NodePattern)
			edge, far := e.extend(cur, rel, next)
			if edge == nil {
				alive = false
				break
			}
			if rel.Identifier != "" {
				row[rel.Identifier] = entity{edge: edge}
			}
			if next.Identifier != "" {
				row[next.Identifier] = entity{node: far}
			}
			cur = far
		}
		if alive {
			rows = append(rows, row)
		}
	}
	return rows
}

// extend finds the first edge leaving cur that satisfies the relationship
// pattern and whose far endpoint satisfies the next node pattern.
func (e *Executor) extend(cur *graph.Node, rel *RelationshipPattern, next *NodePattern) (*graph.Edge, *graph.Node) {
	for _, edge := range e.store.Edges() {
		if rel.RelType != "" && edge.Type != rel.RelType {
			continue
		}
		if !propsMatch(edge.Properties, rel.Properties) {
			continue
		}
		var farID int64
		switch {
		case edge.SourceID == cur.ID:
			farID = edge.TargetID
		case !rel.Directed && edge.TargetID == cur.ID:
			farID = edge.SourceID
		default:
			continue
		}
		far, ok := e.store.GetNode(farID)
		if !ok || !nodeMatches(far, next) {
			continue
		}
		return edge, far
	}
	return nil, nil
}

func nodeMatches(n *graph.Node, pat *NodePattern) bool {
	if pat.Label != "" && n.Label != pat.Label {
		return false
	}
	return propsMatch(n.Properties, pat.Properties)
}

func propsMatch(have, want graph.Properties) bool {
	for k, v := range want {
		hv, ok := have[k]
		if !ok || !hv.Equal(v) {
			return false
		}
	}
	return true
}

func filterRows(rows []bindingRow, where BooleanExpr) []bindingRow {
	out := rows[:0:0]
	for _, row := range rows {
		if evalBoolean(row, where) {
			out = append(out, row)
		}
	}
	return out
}

// executeCreate instantiates the pattern: every node pattern becomes a store
// node, then every relationship pattern becomes an edge between its two
// adjacent freshly created nodes. Multi-element creation is not transactional;
// a failure partway leaves prior elements in place.
func (e *Executor) executeCreate(c *CreateClause) ([]int64, bindingRow, error) {
	row := bindingRow{}
	ids := make([]int64, 0, (len(c.Pattern)+1)/2)
	nodeAt := make(map[int]*graph.Node, len(c.Pattern))
	for i, el := range c.Pattern {
		pat, ok := el.(*NodePattern)
		if !ok {
			continue
		}
		id, err := e.store.AddNode("", pat.Label, pat.Properties)
		if err != nil {
			return nil, nil, fmt.Errorf("CREATE: %w", err)
		}
		node, _ := e.store.GetNode(id)
		nodeAt[i] = node
		ids = append(ids, id)
		if pat.Identifier != "" {
			row[pat.Identifier] = entity{node: node}
		}
	}
	for i, el := range c.Pattern {
		rel, ok := el.(*RelationshipPattern)
		if !ok {
			continue
		}
		left, right := nodeAt[i-1], nodeAt[i+1]
		if left == nil || right == nil {
			return nil, nil, fmt.Errorf("CREATE: relationship element %d has no adjacent nodes", i)
		}
		if err := e.store.AddEdge(left.ID, right.ID, rel.RelType, rel.Properties); err != nil {
			return nil, nil, fmt.Errorf("CREATE: %w", err)
		}
		if rel.Identifier != "" {
			edge, _ := e.findEdge(left.ID, right.ID, rel.RelType)
			row[rel.Identifier] = entity{edge: edge}
		}
	}
	return ids, row, nil
}

func (e *Executor) findEdge(sourceID, targetID int64, relType string) (*graph.Edge, bool) {
	for _, edge := range e.store.Edges() {
		if edge.SourceID == sourceID && edge.TargetID == targetID && edge.Type == relType {
			return edge, true
		}
	}
	return nil, false
}

// executeDelete removes nodes (and, with DETACH, their edges). The pattern
// form matches store-wide; the expression form resolves identifiers against
// the active row set. Multi-target deletion is not transactional.
func (e *Executor) executeDelete(c *DeleteClause, active []bindingRow) (int, error) {
	targets := make([]entity, 0)
	seen := make(map[int64]bool)
	seenEdges := make(map[string]bool)
	if c.Pattern != nil {
		rows := e.matchPattern(c.Pattern)
		if c.Where != nil {
			rows = filterRows(rows, c.Where)
		}
		for _, row := range rows {
			for _, ent := range row {
				if ent.node != nil && !seen[ent.node.ID] {
					seen[ent.node.ID] = true
					targets = append(targets, ent)
				}
			}
		}
	} else {
		for _, expr := range c.Exprs {
			ident, ok := expr.(*Identifier)
			if !ok {
				return 0, fmt.Errorf("DELETE target must be an identifier, got %s", expr.Text())
			}
			for _, row := range active {
				ent, bound := row[ident.Name]
				if !bound {
					continue
				}
				if ent.node != nil && !seen[ent.node.ID] {
					seen[ent.node.ID] = true
					targets = append(targets, ent)
				}
				if ent.edge != nil {
					key := fmt.Sprintf("%d|%d|%s", ent.edge.SourceID, ent.edge.TargetID, ent.edge.Type)
					if !seenEdges[key] {
						seenEdges[key] = true
						targets = append(targets, ent)
					}
				}
			}
		}
	}
	deleted := 0
	for _, ent := range targets {
		if ent.edge != nil {
			err := e.store.DeleteEdge(ent.edge.SourceID, ent.edge.TargetID, ent.edge.Type)
			if err != nil {
				return deleted, fmt.Errorf("DELETE: %w", err)
			}
			deleted++
			continue
		}
		if c.Detach {
			e.detach(ent.node.ID)
		}
		if err := e.store.DeleteNode(ent.node.ID); err != nil {
			return deleted, fmt.Errorf("DELETE: %w", err)
		}
		deleted++
	}
	e.log.WithField("deleted", deleted).Debug("DELETE applied")
	return deleted, nil
}

// detach removes every edge touching the node before the node goes away.
func (e *Executor) detach(nodeID int64) {
	var doomed []*graph.Edge
	for _, edge := range e.store.Edges() {
		if edge.SourceID == nodeID || edge.TargetID == nodeID {
			doomed = append(doomed, edge)
		}
	}
	for _, edge := range doomed {
		// The edge was just observed; a failed delete here means another
		// target already removed it, which is fine.
		_ = e.store.DeleteEdge(edge.SourceID, edge.TargetID, edge.Type)
	}
}

// executeReturn projects the active row set. When any item is an aggregate
// call the whole set collapses to a single output row (flat aggregation, no
// grouping).
func (e *Executor) executeReturn(c *ReturnClause, active []bindingRow) *projection {
	proj := &projection{}
	for _, item := range c.Items {
		proj.columns = append(proj.columns, item.ColumnName())
	}
	if hasAggregate(c.Items) {
		cells := Row{}
		for _, item := range c.Items {
			if call, ok := item.Expr.(*FunctionCall); ok && builtins[call.Name].aggregate {
				if v, ok := e.evalAggregate(call, active); ok {
					cells[item.ColumnName()] = v
				}
				continue
			}
			if len(active) > 0 {
				if v, ok := evalExpr(active[0], item.Expr); ok {
					cells[item.ColumnName()] = v
				}
			}
		}
		proj.rows = []projRow{{cells: cells}}
		return proj
	}
	for _, row := range active {
		cells := Row{}
		for _, item := range c.Items {
			if v, ok := evalExpr(row, item.Expr); ok {
				cells[item.ColumnName()] = v
			}
		}
		proj.rows = append(proj.rows, projRow{cells: cells, src: row})
	}
	if c.Distinct {
		proj.rows = distinctRows(proj.columns, proj.rows)
	}
	return proj
}

func hasAggregate(items []ReturnItem) bool {
	for _, item := range items {
		if call, ok := item.Expr.(*FunctionCall); ok && builtins[call.Name].aggregate {
			return true
		}
	}
	return false
}

// distinctRows removes duplicate rows by full-row equality.
func distinctRows(columns []string, rows []projRow) []projRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		key := rowKey(columns, r.cells)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func rowKey(columns []string, cells Row) string {
	var b strings.Builder
	for _, col := range columns {
		v, ok := cells[col]
		if ok {
			fmt.Fprintf(&b, "%d:%s|", v.Kind, v.String())
		} else {
			b.WriteString("~|")
		}
	}
	return b.String()
}

// orderBy sorts the projection stably on the tuple of evaluated order keys,
// negating each key's comparison independently when it is marked DESC.
func (e *Executor) orderBy(proj *projection, items []OrderItem) {
	keys := make([][]sortKey, len(proj.rows))
	for i, r := range proj.rows {
		keys[i] = make([]sortKey, len(items))
		for j, item := range items {
			v, ok := e.orderValue(proj, r, item.Expr)
			keys[i][j] = sortKey{value: v, valid: ok}
		}
	}
	indexed := make([]int, len(proj.rows))
	for i := range indexed {
		indexed[i] = i
	}
	sort.SliceStable(indexed, func(a, b int) bool {
		for j, item := range items {
			cmp := compareKeys(keys[indexed[a]][j], keys[indexed[b]][j])
			if cmp == 0 {
				continue
			}
			if item.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	sorted := make([]projRow, len(proj.rows))
	for i, idx := range indexed {
		sorted[i] = proj.rows[idx]
	}
	proj.rows = sorted
}

type sortKey struct {
	value graph.Value
	valid bool
}

// compareKeys orders missing values before present ones and treats
// incomparable pairs as equal, keeping the sort stable.
func compareKeys(a, b sortKey) int {
	if !a.valid && !b.valid {
		return 0
	}
	if !a.valid {
		return -1
	}
	if !b.valid {
		return 1
	}
	cmp, ok := a.value.Compare(b.value)
	if !ok {
		return 0
	}
	return cmp
}

// orderValue evaluates an order key for a row: a projected column by its
// textual form first (so RETURN aliases work), then the row's source
// bindings.
func (e *Executor) orderValue(proj *projection, r projRow, expr Expression) (graph.Value, bool) {
	if v, ok := r.cells[expr.Text()]; ok {
		return v, true
	}
	if r.src != nil {
		return evalExpr(r.src, expr)
	}
	return graph.Value{}, false
}

// evalBoolean evaluates a predicate with two-valued logic: a condition over a
// missing property is simply false. AND and OR short-circuit.
func evalBoolean(row bindingRow, b BooleanExpr) bool {
	switch expr := b.(type) {
	case *LogicalExpr:
		left := evalBoolean(row, expr.Left)
		if expr.Op == OpAnd {
			return left && evalBoolean(row, expr.Right)
		}
		return left || evalBoolean(row, expr.Right)
	case *Condition:
		return evalCondition(row, expr)
	default:
		return false
	}
}

func evalCondition(row bindingRow, c *Condition) bool {
	if c.Operator == CmpIsNull || c.Operator == CmpIsNotNull {
		_, ok := evalExpr(row, c.Left)
		if c.Operator == CmpIsNull {
			return !ok
		}
		return ok
	}
	left, ok := evalExpr(row, c.Left)
	if !ok {
		return false
	}
	right, ok := evalExpr(row, c.Right)
	if !ok {
		return false
	}
	switch c.Operator {
	case CmpEq:
		return left.Equal(right)
	case CmpNe:
		return !left.Equal(right)
	case CmpLt, CmpLe, CmpGt, CmpGe:
		cmp, comparable := left.Compare(right)
		if !comparable {
			return false
		}
		switch c.Operator {
		case CmpLt:
			return cmp < 0
		case CmpLe:
			return cmp <= 0
		case CmpGt:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case CmpStartsWith, CmpEndsWith, CmpContains:
		if left.Kind != graph.KindString || right.Kind != graph.KindString {
			return false
		}
		switch c.Operator {
		case CmpStartsWith:
			return strings.HasPrefix(left.Str, right.Str)
		case CmpEndsWith:
			return strings.HasSuffix(left.Str, right.Str)
		default:
			return strings.Contains(left.Str, right.Str)
		}
	default:
		return false
	}
}

// evalExpr evaluates an expression against one row. The second return is
// false when the expression has no value there (unbound identifier, missing
// property, type error in +).
func evalExpr(row bindingRow, expr Expression) (graph.Value, bool) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, true
	case *PropertyAccess:
		ent, ok := row[e.Entity]
		if !ok {
			return graph.Value{}, false
		}
		var props graph.Properties
		if ent.node != nil {
			props = ent.node.Properties
		} else if ent.edge != nil {
			props = ent.edge.Properties
		}
		v, ok := props[e.Property]
		return v, ok
	case *Identifier:
		ent, ok := row[e.Name]
		if !ok {
			return graph.Value{}, false
		}
		// A bound node projects as its name property when one is set,
		// falling back to the store-assigned name. A relationship projects
		// as its type.
		if ent.node != nil {
			if v, ok := ent.node.Properties["name"]; ok && v.Kind == graph.KindString {
				return v, true
			}
			return graph.String(ent.node.Name), true
		}
		if ent.edge != nil {
			return graph.String(ent.edge.Type), true
		}
		return graph.Value{}, false
	case *BinaryExpr:
		left, ok := evalExpr(row, e.Left)
		if !ok {
			return graph.Value{}, false
		}
		right, ok := evalExpr(row, e.Right)
		if !ok {
			return graph.Value{}, false
		}
		return addValues(left, right)
	case *FunctionCall:
		return evalScalarFunc(row, e)
	default:
		return graph.Value{}, false
	}
}

// addValues implements +: string concatenation when both operands are
// strings, numeric addition when both are numeric.
func addValues(left, right graph.Value) (graph.Value, bool) {
	if left.Kind == graph.KindString && right.Kind == graph.KindString {
		return graph.String(left.Str + right.Str), true
	}
	if left.IsNumeric() && right.IsNumeric() {
		if left.Kind == graph.KindInt && right.Kind == graph.KindInt {
			return graph.Int64(left.Int + right.Int), true
		}
		return graph.Float64(left.AsFloat() + right.AsFloat()), true
	}
	return graph.Value{}, false
}

// evalScalarFunc evaluates the per-row builtins.
func evalScalarFunc(row bindingRow, call *FunctionCall) (graph.Value, bool) {
	if len(call.Args) != 1 {
		return graph.Value{}, false
	}
	arg := call.Args[0]
	switch call.Name {
	case "type":
		if ident, ok := arg.(*Identifier); ok {
			if ent, bound := row[ident.Name]; bound {
				if ent.edge != nil {
					return graph.String(ent.edge.Type), true
				}
				if ent.node != nil {
					return graph.String(ent.node.Label), true
				}
			}
		}
		return graph.Value{}, false
	case "id":
		if ident, ok := arg.(*Identifier); ok {
			if ent, bound := row[ident.Name]; bound && ent.node != nil {
				return graph.Int64(ent.node.ID), true
			}
		}
		return graph.Value{}, false
	}
	v, ok := evalExpr(row, arg)
	if !ok {
		return graph.Value{}, false
	}
	switch call.Name {
	case "length":
		if v.Kind != graph.KindString {
			return graph.Value{}, false
		}
		return graph.Int64(int64(len(v.Str))), true
	case "toInteger":
		switch v.Kind {
		case graph.KindInt:
			return v, true
		case graph.KindFloat:
			return graph.Int64(int64(v.Float)), true
		case graph.KindString:
			var n int64
			if _, err := fmt.Sscanf(v.Str, "%d", &n); err != nil {
				return graph.Value{}, false
			}
			return graph.Int64(n), true
		default:
			return graph.Value{}, false
		}
	case "toFloat":
		switch v.Kind {
		case graph.KindInt:
			return graph.Float64(float64(v.Int)), true
		case graph.KindFloat:
			return v, true
		case graph.KindString:
			var f float64
			if _, err := fmt.Sscanf(v.Str, "%g", &f); err != nil {
				return graph.Value{}, false
			}
			return graph.Float64(f), true
		default:
			return graph.Value{}, false
		}
	case "toString":
		return graph.String(v.String()), true
	default:
		return graph.Value{}, false
	}
}

// evalAggregate evaluates an aggregate call flatly over the whole active row
// set.
func (e *Executor) evalAggregate(call *FunctionCall, rows []bindingRow) (graph.Value, bool) {
	if len(call.Args) != 1 {
		return graph.Value{}, false
	}
	arg := call.Args[0]
	var values []graph.Value
	for _, row := range rows {
		if v, ok := evalExpr(row, arg); ok {
			values = append(values, v)
		}
	}
	switch call.Name {
	case "count":
		return graph.Int64(int64(len(values))), true
	case "sum", "avg":
		sum := 0.0
		n := 0
		for _, v := range values {
			if v.IsNumeric() {
				sum += v.AsFloat()
				n++
			}
		}
		if call.Name == "avg" {
			if n == 0 {
				return graph.Value{}, false
			}
			return graph.Float64(sum / float64(n)), true
		}
		return graph.Float64(sum), true
	case "max", "min":
		if len(values) == 0 {
			return graph.Value{}, false
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, ok := v.Compare(best)
			if !ok {
				continue
			}
			if (call.Name == "max" && cmp > 0) || (call.Name == "min" && cmp < 0) {
				best = v
			}
		}
		return best, true
	case "collect":
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v.String()
		}
		// Rows carry scalars only, so the collected list renders as text.
		return graph.String("[" + strings.Join(parts, ", ") + "]"), true
	default:
		return graph.Value{}, false
	}
}
