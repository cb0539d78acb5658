package structure

import "errors"

// Domain errors for structure construction and mutation.
var (
	// ErrPositionDim indicates a node position with the wrong number of components.
	ErrPositionDim = errors.New("structure: position must have exactly 2 or 3 components")

	// ErrTooFewNodes indicates a connection chain with fewer than two nodes.
	ErrTooFewNodes = errors.New("structure: connection needs at least 2 nodes")

	// ErrNegativeStiffness indicates a connection with stiffness below zero.
	ErrNegativeStiffness = errors.New("structure: stiffness must be non-negative")

	// ErrDuplicateNode indicates two nodes sharing one name in a structure.
	ErrDuplicateNode = errors.New("structure: duplicate node name")

	// ErrControlCount indicates a delta count not matching the control count.
	ErrControlCount = errors.New("structure: delta count must equal control count")

	// ErrUnknownNode indicates a reference to a node name the structure lacks.
	ErrUnknownNode = errors.New("structure: unknown node")
)
