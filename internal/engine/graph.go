package engine

import (
	"fmt"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
)

// GraphCycleError reports a cyclic parent chain in a workflow's action set.
type GraphCycleError struct {
	ActionID uuid.UUID
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("action %s is part of a parent cycle", e.ActionID)
}

// ValidationError reports malformed graph input rejected before any state
// mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Node is one action in the owned graph snapshot. Children are ordered the
// same way top-level actions are: sort order ascending, insertion order on
// ties.
type Node struct {
	Action   models.Action
	Children []*Node
}

// Graph is the immutable snapshot the engine walks. It is built once per
// execution from the action rows read at run start; later workflow edits
// never touch it.
type Graph struct {
	Roots []*Node

	nodes map[uuid.UUID]*Node
}

// Size returns the number of actions in the snapshot.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// NodeByID returns the node for an action id, or nil.
func (g *Graph) NodeByID(id uuid.UUID) *Node {
	return g.nodes[id]
}

// BuildGraph arranges a workflow's actions into a forest keyed by action id.
// The input must already be ordered (sort_order ASC, created_at ASC); the
// build preserves that order for roots and children alike.
//
// The parent chain of every action is checked before any linking, so a
// corrupt store (A->B->A) surfaces as *GraphCycleError instead of infinite
// recursion at walk time.
func BuildGraph(actions []models.Action) (*Graph, error) {
	g := &Graph{nodes: make(map[uuid.UUID]*Node, len(actions))}

	byID := make(map[uuid.UUID]*models.Action, len(actions))
	for i := range actions {
		byID[actions[i].ID] = &actions[i]
	}

	for i := range actions {
		if err := checkParentChain(&actions[i], byID); err != nil {
			return nil, err
		}
	}

	for i := range actions {
		g.nodes[actions[i].ID] = &Node{Action: actions[i]}
	}

	for i := range actions {
		node := g.nodes[actions[i].ID]
		parentID := actions[i].ParentActionID
		if parentID == nil {
			g.Roots = append(g.Roots, node)
			continue
		}
		parent, ok := g.nodes[*parentID]
		if !ok {
			return nil, &ValidationError{
				Message: fmt.Sprintf("action %s references missing parent %s", actions[i].ID, *parentID),
			}
		}
		parent.Children = append(parent.Children, node)
	}

	return g, nil
}

func checkParentChain(action *models.Action, byID map[uuid.UUID]*models.Action) error {
	visited := map[uuid.UUID]bool{action.ID: true}

	current := action
	for current.ParentActionID != nil {
		parent, ok := byID[*current.ParentActionID]
		if !ok {
			// Reported during linking with the full context.
			return nil
		}
		if visited[parent.ID] {
			return &GraphCycleError{ActionID: action.ID}
		}
		visited[parent.ID] = true
		current = parent
	}

	return nil
}
