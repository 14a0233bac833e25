package approx

import (
	G "gorgonia.org/gorgonia"
)

// Output is the output of a function approximator's func, which holds
// the parameters of a distribution over the output space. An Output is
// either Logits, for Discrete output spaces, or Gaussian, for Box
// output spaces.
type Output interface {
	// Fields returns the sorted names of the outputs that are set
	Fields() []string

	// nodes returns the outputs that are set, in canonical order
	nodes() []*G.Node
}

// Logits holds the logits of a categorical distribution
type Logits struct {
	Logits *G.Node
}

// Fields implements the Output interface
func (l Logits) Fields() []string {
	if l.Logits == nil {
		return []string{}
	}
	return []string{"logits"}
}

func (l Logits) nodes() []*G.Node {
	if l.Logits == nil {
		return nil
	}
	return []*G.Node{l.Logits}
}

// Gaussian holds the mean and log-variance of a diagonal Gaussian
// distribution
type Gaussian struct {
	Mu     *G.Node
	LogVar *G.Node
}

// Fields implements the Output interface
func (g Gaussian) Fields() []string {
	fields := []string{}
	if g.LogVar != nil {
		fields = append(fields, "logvar")
	}
	if g.Mu != nil {
		fields = append(fields, "mu")
	}
	return fields
}

func (g Gaussian) nodes() []*G.Node {
	nodes := make([]*G.Node, 0, 2)
	if g.Mu != nil {
		nodes = append(nodes, g.Mu)
	}
	if g.LogVar != nil {
		nodes = append(nodes, g.LogVar)
	}
	return nodes
}
