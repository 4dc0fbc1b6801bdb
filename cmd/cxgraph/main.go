package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cxgraph"
	"cxgraph/cypher"
)

var version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "cxgraph",
		Short: "In-memory property graph store with a Cypher-subset query language",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.AddCommand(replCmd(), execCmd(), importCmd(), exportCmd(), versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB builds a DB from the --config flag, or an empty one without it.
func openDB() (*cxgraph.DB, error) {
	if configPath == "" {
		return cxgraph.New(), nil
	}
	cfg, err := cxgraph.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return cxgraph.Open(cfg)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cxgraph version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cxgraph %s\n", version)
		},
	}
}

func execCmd() *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "exec <query>",
		Short: "Execute a single query and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if seedFile != "" {
				if err := db.ImportFile(seedFile); err != nil {
					return err
				}
			}
			result, err := db.Execute(args[0])
			if err != nil {
				return err
			}
			printResult(os.Stdout, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&seedFile, "seed", "s", "", "exchange document to load before executing")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Validate an exchange document by loading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := db.ImportFile(args[0]); err != nil {
				return err
			}
			fmt.Printf("Imported %d nodes, %d edges\n", db.NodeCount(), db.EdgeCount())
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <in> <out>",
		Short: "Load an exchange document and re-export it normalized",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := db.ImportFile(args[0]); err != nil {
				return err
			}
			return db.ExportFile(args[1])
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive query session",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			rs := &replState{db: db, isRunning: true}
			rs.run()
			return nil
		},
	}
}

// replState holds the state of the interactive session
type replState struct {
	db        *cxgraph.DB
	queryNum  int
	isRunning bool
}

// run drives the read-eval-print loop over stdin.
func (rs *replState) run() {
	logrus.WithField("component", "Main").Info("Starting cxgraph REPL")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Welcome to cxgraph. Type '.help' for commands or '.exit' to quit.")

	for rs.isRunning {
		fmt.Print("cxgraph> ")
		if !scanner.Scan() {
			break
		}
		if err := rs.processCommand(scanner.Text()); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
	fmt.Println("Goodbye!")
}

// processCommand handles one line: a dot command or a query.
func (rs *replState) processCommand(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, ".") {
		fields := strings.Fields(input)
		switch strings.ToLower(fields[0]) {
		case ".help":
			rs.printHelp()
			return nil
		case ".exit", ".quit":
			rs.isRunning = false
			return nil
		case ".stats":
			fmt.Printf("Nodes: %d, Edges: %d\n", rs.db.NodeCount(), rs.db.EdgeCount())
			return nil
		case ".clear":
			rs.db.Clear()
			fmt.Println("Graph cleared")
			return nil
		case ".import":
			if len(fields) != 2 {
				return fmt.Errorf("usage: .import <file>")
			}
			if err := rs.db.ImportFile(fields[1]); err != nil {
				return err
			}
			fmt.Printf("Imported %d nodes, %d edges\n", rs.db.NodeCount(), rs.db.EdgeCount())
			return nil
		case ".export":
			if len(fields) != 2 {
				return fmt.Errorf("usage: .export <file>")
			}
			if err := rs.db.ExportFile(fields[1]); err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", fields[1])
			return nil
		default:
			return fmt.Errorf("unknown command: %s; type '.help' for assistance", fields[0])
		}
	}

	return rs.executeQuery(input)
}

// executeQuery runs one query and prints its result.
func (rs *replState) executeQuery(query string) error {
	rs.queryNum++
	log := logrus.WithFields(logrus.Fields{
		"component": "Main",
		"query_num": rs.queryNum,
	})
	start := time.Now()
	result, err := rs.db.Execute(query)
	if err != nil {
		log.WithError(err).Debug("Query failed")
		return err
	}
	printResult(os.Stdout, result)
	fmt.Printf("(%s)\n", time.Since(start).Round(time.Microsecond))
	return nil
}

func (rs *replState) printHelp() {
	fmt.Println("cxgraph REPL Commands:")
	fmt.Println("  .help              Show this help message")
	fmt.Println("  .exit              Exit the REPL")
	fmt.Println("  .stats             Show node and edge counts")
	fmt.Println("  .clear             Delete all nodes and edges")
	fmt.Println("  .import <file>     Load an exchange document (replaces the graph)")
	fmt.Println("  .export <file>     Write the graph as an exchange document")
	fmt.Println("Queries:")
	fmt.Println("  CREATE (n:Person {name: 'Alice', age: 30})")
	fmt.Println("  MATCH (n:Person) WHERE n.age > 25 RETURN n.name, n.age")
	fmt.Println("  MATCH (a)-[r:KNOWS]->(b) RETURN a, b")
	fmt.Println("  MATCH (n) WHERE n.name = 'Alice' DETACH DELETE n")
}

// printResult renders one query result to w.
func printResult(w *os.File, result *cypher.Result) {
	switch result.Kind {
	case cypher.ResultCreated:
		fmt.Fprintf(w, "Created %d element(s)\n", len(result.CreatedIDs))
	case cypher.ResultDeleted:
		fmt.Fprintf(w, "Deleted %d element(s)\n", result.Deleted)
	case cypher.ResultRows:
		if len(result.Rows) == 0 {
			fmt.Fprintln(w, "No results")
			return
		}
		fmt.Fprintln(w, strings.Join(result.Columns, " | "))
		for _, row := range result.Rows {
			cells := make([]string, len(result.Columns))
			for i, col := range result.Columns {
				if v, ok := row[col]; ok {
					cells[i] = v.String()
				} else {
					cells[i] = "null"
				}
			}
			fmt.Fprintln(w, strings.Join(cells, " | "))
		}
		fmt.Fprintf(w, "%d row(s)\n", len(result.Rows))
	}
}
