package engine

import (
	"testing"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(id uuid.UUID, order int, parent *uuid.UUID) models.Action {
	return models.Action{
		ID:             id,
		WorkflowID:     uuid.New(),
		ActionType:     "set_variable",
		Order:          order,
		ParentActionID: parent,
	}
}

func TestBuildGraph_Forest(t *testing.T) {
	rootA := uuid.New()
	rootB := uuid.New()
	childA1 := uuid.New()
	childA2 := uuid.New()
	grandchild := uuid.New()

	// The repository returns actions already sorted; the graph must keep
	// that order.
	actions := []models.Action{
		action(rootA, 1, nil),
		action(childA1, 1, &rootA),
		action(childA2, 2, &rootA),
		action(grandchild, 1, &childA1),
		action(rootB, 2, nil),
	}

	graph, err := BuildGraph(actions)
	require.NoError(t, err)

	assert.Equal(t, 5, graph.Size())
	require.Len(t, graph.Roots, 2)
	assert.Equal(t, rootA, graph.Roots[0].Action.ID)
	assert.Equal(t, rootB, graph.Roots[1].Action.ID)

	children := graph.Roots[0].Children
	require.Len(t, children, 2)
	assert.Equal(t, childA1, children[0].Action.ID)
	assert.Equal(t, childA2, children[1].Action.ID)

	require.Len(t, children[0].Children, 1)
	assert.Equal(t, grandchild, children[0].Children[0].Action.ID)
	assert.Empty(t, graph.Roots[1].Children)

	node := graph.NodeByID(grandchild)
	require.NotNil(t, node)
	assert.Equal(t, grandchild, node.Action.ID)
	assert.Nil(t, graph.NodeByID(uuid.New()))
}

func TestBuildGraph_Empty(t *testing.T) {
	graph, err := BuildGraph(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, graph.Size())
	assert.Empty(t, graph.Roots)
}

func TestBuildGraph_Cycles(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	tests := []struct {
		name    string
		actions []models.Action
	}{
		{
			name: "two node cycle",
			actions: []models.Action{
				action(a, 1, &b),
				action(b, 2, &a),
			},
		},
		{
			name: "self parent",
			actions: []models.Action{
				action(a, 1, &a),
			},
		},
		{
			name: "three node cycle below a root",
			actions: []models.Action{
				action(c, 1, nil),
				action(a, 1, &b),
				action(b, 2, &a),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph, err := BuildGraph(tt.actions)
			assert.Nil(t, graph)

			var cycleErr *GraphCycleError
			require.ErrorAs(t, err, &cycleErr)
		})
	}
}

func TestBuildGraph_MissingParent(t *testing.T) {
	missing := uuid.New()
	actions := []models.Action{
		action(uuid.New(), 1, &missing),
	}

	graph, err := BuildGraph(actions)
	assert.Nil(t, graph)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}
