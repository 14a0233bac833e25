// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/G.ld on GitHub
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Scalar returns a new scalar input node in the graph g with the same
// dtype as like, holding value.
func Scalar(g *G.ExprGraph, like *G.Node, value float64,
	name string) *G.Node {
	switch like.Dtype() {
	case G.Float32:
		return G.NewScalar(g, G.Float32, G.WithValue(float32(value)),
			G.WithName(name))
	default:
		return G.NewScalar(g, G.Float64, G.WithValue(value), G.WithName(name))
	}
}

// Clip clips the value of a node elementwise to the interval
// [min, max]. Values outside of the interval have zero gradient.
func Clip(value *G.Node, min, max float64) (retVal *G.Node, err error) {
	// Construct clipping nodes
	minNode := Scalar(value.Graph(), value, min, fmt.Sprintf("clip_min_%v",
		min))
	maxNode := Scalar(value.Graph(), value, max, fmt.Sprintf("clip_max_%v",
		max))

	// Check if its the min value
	minMask, err := G.Lt(value, minNode, true)
	if err != nil {
		return nil, err
	}
	minVal, err := G.HadamardProd(minNode, minMask)
	if err != nil {
		return nil, err
	}

	// Check if its the given value
	isMaskGte, err := G.Gte(value, minNode, true)
	if err != nil {
		return nil, err
	}
	isMaskLte, err := G.Lte(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	isMask, err := G.HadamardProd(isMaskGte, isMaskLte)
	if err != nil {
		return nil, err
	}
	isVal, err := G.HadamardProd(value, isMask)
	if err != nil {
		return nil, err
	}

	// Check if its the max value
	maxMask, err := G.Gt(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	maxVal, err := G.HadamardProd(maxNode, maxMask)
	if err != nil {
		return nil, err
	}
	return G.ReduceAdd(G.Nodes{minVal, isVal, maxVal})
}
