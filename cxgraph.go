// Package cxgraph is an embeddable in-memory property graph store with a
// Cypher-subset query engine. A DB wires a graph store to a query executor;
// callers either issue query strings through Execute or use the direct CRUD
// surface on the underlying store.
//
// A DB performs no internal locking. Embedders that share one instance
// across goroutines must serialize writes themselves.
package cxgraph

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"cxgraph/cypher"
	"cxgraph/graph"
)

// DB is one graph database instance.
type DB struct {
	store *graph.Store
	exec  *cypher.Executor
	log   *logrus.Entry
}

// New creates an empty database.
func New() *DB {
	store := graph.NewStore()
	return &DB{
		store: store,
		exec:  cypher.NewExecutor(store),
		log:   logrus.WithField("component", "DB"),
	}
}

// Open creates a database configured by cfg, seeding it from cfg.SeedFile
// when one is set.
func Open(cfg Config) (*DB, error) {
	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		logrus.SetLevel(level)
	}
	db := New()
	if cfg.SeedFile != "" {
		if err := db.ImportFile(cfg.SeedFile); err != nil {
			return nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		db.log.WithField("seed", cfg.SeedFile).Info("Database seeded")
	}
	return db, nil
}

// Execute runs one query string through the full pipeline and returns its
// result.
func (db *DB) Execute(query string) (*cypher.Result, error) {
	return db.exec.Execute(query)
}

// Store exposes the underlying graph store for direct CRUD access.
func (db *DB) Store() *graph.Store {
	return db.store
}

// AddNode inserts a node and returns its id. An empty name is auto-assigned.
func (db *DB) AddNode(name, label string, props graph.Properties) (int64, error) {
	return db.store.AddNode(name, label, props)
}

// AddEdge inserts an edge between two existing nodes.
func (db *DB) AddEdge(sourceID, targetID int64, relType string, props graph.Properties) error {
	return db.store.AddEdge(sourceID, targetID, relType, props)
}

// NodeCount reports the number of nodes.
func (db *DB) NodeCount() int { return db.store.NodeCount() }

// EdgeCount reports the number of edges.
func (db *DB) EdgeCount() int { return db.store.EdgeCount() }

// Clear removes all nodes and edges and resets id assignment.
func (db *DB) Clear() { db.store.Clear() }

// ExportFile writes the whole graph to path as a JSON exchange document.
func (db *DB) ExportFile(path string) error {
	return graph.ExportFile(db.store, path)
}

// ImportFile replaces the graph contents with the exchange document at path.
func (db *DB) ImportFile(path string) error {
	return graph.ImportFile(db.store, path)
}
