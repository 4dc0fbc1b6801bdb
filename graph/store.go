// Package graph implements the in-memory graph store backing the Cypher
// engine: nodes with unique names and a single label, directed edges keyed by
// (source, target, type), and flat bags of scalar properties.
//
// The store has no internal locking. Concurrent callers must serialize writers
// themselves (single-writer, multiple-reader); interleaving a mutation with an
// in-progress traversal is unsafe.
package graph

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Store errors surfaced through query execution.
var (
	ErrDuplicateName = errors.New("node name must be unique")
	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
)

// Node is a stored graph node. IDs are assigned monotonically from 1 and never
// reused until Clear; names are globally unique.
type Node struct {
	ID         int64
	Name       string
	Label      string
	Properties Properties
}

// Edge is a stored directed edge between two node IDs.
type Edge struct {
	SourceID   int64
	TargetID   int64
	Type       string
	Properties Properties
}

// Store holds the graph in memory with insertion-ordered node and edge lists
// plus lookup indexes by id, name and label.
type Store struct {
	nodes   []*Node
	edges   []*Edge
	byID    map[int64]*Node
	byName  map[string]*Node
	byLabel map[string][]int64
	nextID  int64
	log     *logrus.Entry
}

// NewStore initializes an empty Store.
func NewStore() *Store {
	s := &Store{log: logrus.WithField("component", "Store")}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.nodes = nil
	s.edges = nil
	s.byID = make(map[int64]*Node)
	s.byName = make(map[string]*Node)
	s.byLabel = make(map[string][]int64)
	s.nextID = 1
}

// AddNode adds a node and returns its assigned id. An empty name is replaced
// with the auto-generated internal name "Node_<id>". The name must be unique.
func (s *Store) AddNode(name, label string, props Properties) (int64, error) {
	if name == "" {
		name = fmt.Sprintf("Node_%d", s.nextID)
	}
	if _, exists := s.byName[name]; exists {
		s.log.WithField("name", name).Warn("Rejected duplicate node name")
		return 0, ErrDuplicateName
	}
	node := &Node{
		ID:         s.nextID,
		Name:       name,
		Label:      label,
		Properties: props.Clone(),
	}
	s.nextID++
	s.nodes = append(s.nodes, node)
	s.byID[node.ID] = node
	s.byName[name] = node
	if label != "" {
		s.byLabel[label] = append(s.byLabel[label], node.ID)
	}
	s.log.WithFields(logrus.Fields{
		"node_id": node.ID,
		"label":   label,
	}).Debug("Node added")
	return node.ID, nil
}

// GetNode retrieves a node by id.
func (s *Store) GetNode(id int64) (*Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// GetNodeByName retrieves a node by its unique name.
func (s *Store) GetNodeByName(name string) (*Node, bool) {
	n, ok := s.byName[name]
	return n, ok
}

// NodesByLabel returns the ids of all nodes carrying the given label, in
// insertion order.
func (s *Store) NodesByLabel(label string) []int64 {
	return s.byLabel[label]
}

// UpdateNode changes a node's name, label and/or properties. A non-empty name
// re-checks the uniqueness invariant. Property entries map to assignments;
// callers remove a property by passing it through RemoveNodeProperty.
func (s *Store) UpdateNode(id int64, name, label string, props Properties) error {
	node, ok := s.byID[id]
	if !ok {
		return ErrNodeNotFound
	}
	if name != "" && name != node.Name {
		if _, exists := s.byName[name]; exists {
			return ErrDuplicateName
		}
		delete(s.byName, node.Name)
		node.Name = name
		s.byName[name] = node
	}
	if label != "" && label != node.Label {
		s.dropLabel(node)
		node.Label = label
		s.byLabel[label] = append(s.byLabel[label], node.ID)
	}
	for k, v := range props {
		node.Properties[k] = v
	}
	s.log.WithField("node_id", id).Debug("Node updated")
	return nil
}

// RemoveNodeProperty deletes a single property key from a node.
func (s *Store) RemoveNodeProperty(id int64, key string) error {
	node, ok := s.byID[id]
	if !ok {
		return ErrNodeNotFound
	}
	delete(node.Properties, key)
	return nil
}

// AddEdge adds a directed edge. Both endpoints must reference existing nodes.
func (s *Store) AddEdge(sourceID, targetID int64, relType string, props Properties) error {
	if _, ok := s.byID[sourceID]; !ok {
		return fmt.Errorf("edge source %d: %w", sourceID, ErrNodeNotFound)
	}
	if _, ok := s.byID[targetID]; !ok {
		return fmt.Errorf("edge target %d: %w", targetID, ErrNodeNotFound)
	}
	edge := &Edge{
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       relType,
		Properties: props.Clone(),
	}
	s.edges = append(s.edges, edge)
	s.log.WithFields(logrus.Fields{
		"source": sourceID,
		"target": targetID,
		"type":   relType,
	}).Debug("Edge added")
	return nil
}

// GetEdge retrieves an edge by its (source, target, type) key.
func (s *Store) GetEdge(sourceID, targetID int64, relType string) (*Edge, bool) {
	for _, e := range s.edges {
		if e.SourceID == sourceID && e.TargetID == targetID && e.Type == relType {
			return e, true
		}
	}
	return nil, false
}

// UpdateEdge merges properties onto an existing edge.
func (s *Store) UpdateEdge(sourceID, targetID int64, relType string, props Properties) error {
	edge, ok := s.GetEdge(sourceID, targetID, relType)
	if !ok {
		return ErrEdgeNotFound
	}
	for k, v := range props {
		edge.Properties[k] = v
	}
	return nil
}

// Nodes returns all nodes in insertion order. The slice is shared; callers
// must not mutate it.
func (s *Store) Nodes() []*Node { return s.nodes }

// Edges returns all edges in insertion order. The slice is shared; callers
// must not mutate it.
func (s *Store) Edges() []*Edge { return s.edges }

// NodeCount returns the number of stored nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of stored edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// DeleteNode removes a node by id. Edges referencing the node are left in
// place; removing them first is the caller's responsibility (DETACH DELETE in
// the query engine does exactly that).
func (s *Store) DeleteNode(id int64) error {
	node, ok := s.byID[id]
	if !ok {
		return ErrNodeNotFound
	}
	delete(s.byID, id)
	delete(s.byName, node.Name)
	s.dropLabel(node)
	for i, n := range s.nodes {
		if n.ID == id {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	s.log.WithField("node_id", id).Debug("Node deleted")
	return nil
}

// DeleteEdge removes an edge by its (source, target, type) key.
func (s *Store) DeleteEdge(sourceID, targetID int64, relType string) error {
	for i, e := range s.edges {
		if e.SourceID == sourceID && e.TargetID == targetID && e.Type == relType {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			s.log.WithFields(logrus.Fields{
				"source": sourceID,
				"target": targetID,
				"type":   relType,
			}).Debug("Edge deleted")
			return nil
		}
	}
	return ErrEdgeNotFound
}

// DeleteEdgesTouching removes every edge whose source or target is the given
// node id and returns how many were removed.
func (s *Store) DeleteEdgesTouching(id int64) int {
	kept := s.edges[:0]
	removed := 0
	for _, e := range s.edges {
		if e.SourceID == id || e.TargetID == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return removed
}

// Clear resets the store to its initial empty state: zero nodes, zero edges,
// id counter back to 1. Calling it twice is the same as calling it once.
func (s *Store) Clear() {
	s.reset()
	s.log.Info("Store cleared")
}

func (s *Store) dropLabel(node *Node) {
	ids := s.byLabel[node.Label]
	for i, id := range ids {
		if id == node.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byLabel, node.Label)
	} else {
		s.byLabel[node.Label] = ids
	}
}
