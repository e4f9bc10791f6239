package autodiff

import (
	"maps"
	"strconv"

	"github.com/born-ml/xform/internal/autodiff/ops"
	"github.com/born-ml/xform/internal/dispatch"
	"github.com/born-ml/xform/internal/tensor"
)

// Node identifies one value in the graph of a reverse-mode level. It is the
// payload of values the level tracks.
type Node struct {
	id int
}

// LogicalShape implements dispatch.Payload; tracking does not change shapes.
func (n *Node) LogicalShape(inner tensor.Shape) tensor.Shape {
	return inner
}

func (n *Node) String() string {
	return "node=" + strconv.Itoa(n.id)
}

// entry is one recorded primitive call.
type entry struct {
	op     ops.Operation
	inputs []*Node // nil for inputs the level does not track
	output *Node
}

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass using reverse-mode automatic
// differentiation.
type GradientTape struct {
	entries []entry
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		entries: make([]entry, 0, 64),
	}
}

// Record adds an operation to the tape.
func (t *GradientTape) Record(op ops.Operation, inputs []*Node, output *Node) {
	t.entries = append(t.entries, entry{op: op, inputs: inputs, output: output})
}

// Clear removes all recorded operations.
func (t *GradientTape) Clear() {
	t.entries = t.entries[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.entries)
}

// Backward propagates the seed gradients through the tape in reverse and
// returns the accumulated gradient of every node reached.
//
// Gradients are computed with dispatched tensor calls, so levels below the
// tape's level record the backward pass itself.
func (t *GradientTape) Backward(seeds map[*Node]*dispatch.Tensor) map[*Node]*dispatch.Tensor {
	grads := maps.Clone(seeds)
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		outputGrad, ok := grads[e.output]
		if !ok {
			continue
		}
		t.accumulateGrads(e, e.op.Backward(outputGrad), grads)
	}
	return grads
}

// accumulateGrads adds each input gradient to the gradient of its node.
func (t *GradientTape) accumulateGrads(e entry, inputGrads []*dispatch.Tensor, grads map[*Node]*dispatch.Tensor) {
	for j, node := range e.inputs {
		if node == nil || j >= len(inputGrads) || inputGrads[j] == nil {
			continue
		}
		if existing, ok := grads[node]; ok {
			grads[node] = existing.Add(inputGrads[j])
		} else {
			grads[node] = inputGrads[j]
		}
	}
}
