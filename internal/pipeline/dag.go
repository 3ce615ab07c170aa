package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunFunc executes one node. in holds only the results of the node's
// declared dependencies.
type RunFunc func(ctx context.Context, in Inputs) (any, error)

// Node is one unit of work in a Graph.
type Node struct {
	ID   string
	Deps []string
	Run  RunFunc
}

// Inputs maps dependency IDs to their results.
type Inputs map[string]any

// Input returns the result of dependency id as T. It reports false when the
// dependency is not visible to the node or has another type.
func Input[T any](in Inputs, id string) (T, bool) {
	v, ok := in[id].(T)
	return v, ok
}

// PhaseError identifies the node whose failure aborted an execution.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("pipeline: phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Graph is a dependency graph of nodes, executed level by level. Nodes keep
// their declaration order, which breaks ties when several fail together.
type Graph struct {
	nodes []Node
}

// NewGraph creates a Graph from nodes. Call Validate before Execute.
func NewGraph(nodes ...Node) *Graph {
	g := &Graph{}
	for _, n := range nodes {
		g.Add(n)
	}
	return g
}

// Add appends a node.
func (g *Graph) Add(n Node) {
	g.nodes = append(g.nodes, n)
}

// Validate rejects empty or duplicate IDs, unknown dependencies and cycles.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		if n.ID == "" {
			return eris.New("pipeline: node with empty id")
		}
		if seen[n.ID] {
			return eris.Errorf("pipeline: duplicate node %q", n.ID)
		}
		if n.Run == nil {
			return eris.Errorf("pipeline: node %q has no run func", n.ID)
		}
		seen[n.ID] = true
	}
	for _, n := range g.nodes {
		for _, d := range n.Deps {
			if !seen[d] {
				return eris.Errorf("pipeline: node %q depends on unknown node %q", n.ID, d)
			}
			if d == n.ID {
				return eris.Errorf("pipeline: node %q depends on itself", n.ID)
			}
		}
	}

	_, err := g.levels()
	return err
}

// Stages returns node IDs grouped by dependency level. Every node's
// dependencies are in earlier stages.
func (g *Graph) Stages() ([][]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g.levels()
}

// levels layers the graph with Kahn's algorithm: each round takes every node
// whose in-degree has reached zero. Leftover nodes mean a cycle.
func (g *Graph) levels() ([][]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n.ID] = len(n.Deps)
		for _, d := range n.Deps {
			dependents[d] = append(dependents[d], n.ID)
		}
	}

	var stages [][]string
	processed := 0
	for processed < len(g.nodes) {
		var stage []string
		for _, n := range g.nodes {
			if inDegree[n.ID] == 0 {
				stage = append(stage, n.ID)
			}
		}
		if len(stage) == 0 {
			var remaining []string
			for _, n := range g.nodes {
				if inDegree[n.ID] > 0 {
					remaining = append(remaining, n.ID)
				}
			}
			return nil, eris.Errorf("pipeline: dependency cycle among %v", remaining)
		}
		for _, id := range stage {
			inDegree[id] = -1
			for _, dep := range dependents[id] {
				inDegree[dep]--
			}
		}
		processed += len(stage)
		stages = append(stages, stage)
	}
	return stages, nil
}

// ExecuteOption configures one Execute call.
type ExecuteOption func(*execConfig)

type execConfig struct {
	onStage func(level int, ids []string)
}

// OnStage is called before each stage starts.
func OnStage(fn func(level int, ids []string)) ExecuteOption {
	return func(c *execConfig) {
		c.onStage = fn
	}
}

// Execute runs the graph. Nodes of one stage run concurrently and the next
// stage starts only after all of them return. A failing node does not cancel
// its siblings; once the stage joins, the first failure in declaration order
// is returned as a *PhaseError and the others are logged.
func (g *Graph) Execute(ctx context.Context, opts ...ExecuteOption) (map[string]any, error) {
	var cfg execConfig
	for _, o := range opts {
		o(&cfg)
	}

	stages, err := g.Stages()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Node, len(g.nodes))
	for _, n := range g.nodes {
		byID[n.ID] = n
	}

	results := make(map[string]any, len(g.nodes))
	for level, stage := range stages {
		if cfg.onStage != nil {
			cfg.onStage(level, stage)
		}

		outs := make([]any, len(stage))
		errs := make([]error, len(stage))
		var eg errgroup.Group
		for i, id := range stage {
			node := byID[id]
			in := make(Inputs, len(node.Deps))
			for _, d := range node.Deps {
				in[d] = results[d]
			}
			eg.Go(func() error {
				outs[i], errs[i] = node.Run(ctx, in)
				return nil
			})
		}
		_ = eg.Wait() // failures are collected in errs

		var first *PhaseError
		for i, err := range errs {
			if err == nil {
				continue
			}
			if first == nil {
				first = &PhaseError{Phase: stage[i], Err: err}
				continue
			}
			zap.L().Warn("pipeline: additional phase failure",
				zap.String("phase", stage[i]),
				zap.String("reported", first.Phase),
				zap.Error(err),
			)
		}
		if first != nil {
			return nil, first
		}
		for i, id := range stage {
			results[id] = outs[i]
		}
	}
	return results, nil
}
