package approx

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrType2NonDiscrete is returned when constructing a type-2 model over
// an action space which cannot be enumerated
var ErrType2NonDiscrete = errors.New("type-2 models are only well-defined " +
	"for Discrete action spaces")

// ErrUnsupportedSpace is returned when a space cannot be used as the
// input or output space of a function approximator
var ErrUnsupportedSpace = errors.New("unsupported space")

// SignatureError is returned when a function approximator is
// constructed from a func whose signature is not supported
type SignatureError struct {
	Op   string
	Got  string
	Want []string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%v: func has unsupported signature %v, expected "+
		"one of: %v", e.Op, e.Got, strings.Join(e.Want, "; "))
}

// StructureError is returned when a function approximator's func
// returns outputs that do not describe the distribution family of its
// output space
type StructureError struct {
	Op       string
	Expected []string
	Got      []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%v: func has bad return structure, expected: "+
		"{%v}, got: {%v}", e.Op, strings.Join(e.Expected, ", "),
		strings.Join(e.Got, ", "))
}

// ShapeError is returned when an output of a function approximator's
// func has an incorrect shape
type ShapeError struct {
	Op   string
	Name string
	Want []int
	Have []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: output %v has incorrect shape \n\twant(%v)"+
		"\n\thave(%v)", e.Op, e.Name, e.Want, e.Have)
}

// MissingInputError is returned when a model is called without an
// input which it requires
type MissingInputError struct {
	Op     string
	Input  string
	Reason string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%v: input '%v' is required %v", e.Op, e.Input,
		e.Reason)
}

// IsSignatureError returns whether err is caused by an unsupported func
// signature
func IsSignatureError(err error) bool {
	var target *SignatureError
	return errors.As(err, &target)
}

// IsStructureError returns whether err is caused by a func returning
// the wrong outputs
func IsStructureError(err error) bool {
	var target *StructureError
	return errors.As(err, &target)
}

// IsShapeError returns whether err is caused by a func returning
// outputs of the wrong shape
func IsShapeError(err error) bool {
	var target *ShapeError
	return errors.As(err, &target)
}

// IsMissingInput returns whether err is caused by a missing input
func IsMissingInput(err error) bool {
	var target *MissingInputError
	return errors.As(err, &target)
}
