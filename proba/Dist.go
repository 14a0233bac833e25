// Package proba implements the distribution families that function
// approximators output: categorical distributions parameterized by
// logits over Discrete spaces, and diagonal Gaussian distributions
// parameterized by a mean and log-variance over Box spaces.
package proba

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/space"
)

// Family determines which parameters a distribution is described by
type Family int

const (
	// DiscreteLogits distributions are described by unnormalized
	// log-probabilities
	DiscreteLogits Family = iota

	// GaussianParams distributions are described by a mean and a
	// log-variance
	GaussianParams
)

func (f Family) String() string {
	switch f {
	case DiscreteLogits:
		return "DiscreteLogits"
	case GaussianParams:
		return "GaussianParams"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Fields returns the sorted names of the parameters of the family
func (f Family) Fields() []string {
	switch f {
	case DiscreteLogits:
		return []string{"logits"}
	case GaussianParams:
		return []string{"logvar", "mu"}
	}
	return nil
}

// FamilyOf returns the distribution family over values of s
func FamilyOf(s space.Space) (Family, error) {
	switch s.Kind() {
	case space.Discrete:
		return DiscreteLogits, nil
	case space.Box:
		return GaussianParams, nil
	}
	return 0, fmt.Errorf("familyOf: no distribution family for space %v", s)
}

// Params holds the parameters of a batch of distributions, one row per
// distribution. Logits is set for the DiscreteLogits family, and Mu and
// LogVar are set for the GaussianParams family.
type Params struct {
	Family Family
	Logits *mat.Dense
	Mu     *mat.Dense
	LogVar *mat.Dense
}

// Len returns the number of distributions in the batch
func (p Params) Len() int {
	var m *mat.Dense
	if p.Family == DiscreteLogits {
		m = p.Logits
	} else {
		m = p.Mu
	}
	if m == nil {
		return 0
	}
	r, _ := m.Dims()
	return r
}

// Row returns the parameters of the distribution at row i
func (p Params) Row(i int) Params {
	row := func(m *mat.Dense) *mat.Dense {
		if m == nil {
			return nil
		}
		return mat.NewDense(1, m.RawMatrix().Cols,
			append([]float64(nil), m.RawRowView(i)...))
	}
	return Params{
		Family: p.Family,
		Logits: row(p.Logits),
		Mu:     row(p.Mu),
		LogVar: row(p.LogVar),
	}
}

// Dist is a family of distributions over the values of a space.
// Sampled values and modes are returned as rows of raw space values, so
// that a sample of a Discrete space is a single column of category
// indices.
type Dist interface {
	Family() Family
	Space() space.Space

	// Sample samples one value from each distribution in the batch
	Sample(p Params, rng *rand.Rand) (*mat.Dense, error)

	// SampleLogp samples one value from each distribution in the batch
	// and returns the log-probabilities of the samples
	SampleLogp(p Params, rng *rand.Rand) (*mat.Dense, []float64, error)

	// Mode returns the most likely value of each distribution
	Mode(p Params) (*mat.Dense, error)

	// LogProb returns the log-probability of each row of X under the
	// corresponding distribution
	LogProb(p Params, X *mat.Dense) ([]float64, error)

	// Entropy returns the entropy of each distribution
	Entropy(p Params) ([]float64, error)
}

// New returns the distribution family over values of s
func New(s space.Space) (Dist, error) {
	switch sp := s.(type) {
	case space.DiscreteSpace:
		return NewCategorical(sp), nil
	case space.BoxSpace:
		return NewNormal(sp), nil
	}
	return nil, fmt.Errorf("new: no distribution family for space %v", s)
}

// checkParams checks that p holds a batch of parameters of the given
// family with dim columns
func checkParams(p Params, family Family, dim int) error {
	if p.Family != family {
		return fmt.Errorf("incorrect distribution family \n\twant(%v)"+
			"\n\thave(%v)", family, p.Family)
	}

	var params []*mat.Dense
	if family == DiscreteLogits {
		params = []*mat.Dense{p.Logits}
	} else {
		params = []*mat.Dense{p.Mu, p.LogVar}
	}

	rows := -1
	for i, m := range params {
		if m == nil {
			return fmt.Errorf("missing parameter %v", family.Fields()[i])
		}
		r, c := m.Dims()
		if c != dim {
			return fmt.Errorf("incorrect number of parameter columns "+
				"\n\twant(%v)\n\thave(%v)", dim, c)
		}
		if rows >= 0 && r != rows {
			return fmt.Errorf("parameters have different batch sizes "+
				"\n\twant(%v)\n\thave(%v)", rows, r)
		}
		rows = r
	}
	return nil
}

// checkValues checks that X holds one value per distribution
func checkValues(X *mat.Dense, rows, cols int) error {
	r, c := X.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("incorrect values shape \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", rows, cols, r, c)
	}
	return nil
}
