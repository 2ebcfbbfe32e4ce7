package dispatch

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Variadic marks a shape that forwards every supplied argument.
const Variadic = -1

var (
	// ErrTooFewArgs is returned when a known function receives fewer
	// positional arguments than its shape declares.
	ErrTooFewArgs = errors.New("too few arguments")
	// ErrTransientRequired is returned when a transient-shaped function is
	// routed without transient data.
	ErrTransientRequired = errors.New("transient data required")
)

// Shape describes how a chaincode function receives its input.
type Shape struct {
	Arity     int  `json:"arity" yaml:"arity"`
	Transient bool `json:"transient,omitempty" yaml:"transient,omitempty"`
}

// Call is the routed form of a request, ready for the ledger.
type Call struct {
	Fcn       string
	Args      []string
	Transient map[string][]byte
}

// Table maps chaincode function names to their shapes.
type Table map[string]Shape

// DefaultTable returns the built-in function shapes.
func DefaultTable() Table {
	return Table{
		"queryCar":           {Arity: 1},
		"queryCarsByOwner":   {Arity: 1},
		"getHistoryForAsset": {Arity: 1},
		"restictedMethod":    {Arity: 1},

		"readPrivateCar":              {Arity: 2},
		"queryPrivateDataHash":        {Arity: 2},
		"collectionCarPrivateDetails": {Arity: 2},
		"changeCarOwner":              {Arity: 2},

		"createCar":                       {Arity: 5},
		"createPrivateCarImplicitForOrg1": {Arity: 5},
		"createPrivateCarImplicitForOrg2": {Arity: 5},

		"createPrivateCar":  {Transient: true},
		"updatePrivateData": {Transient: true},
	}
}

// LoadTable reads a YAML mapping of function name to shape and lays it
// over the built-in table. An empty path returns the built-ins.
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dispatch table %s", path)
	}

	overrides := make(map[string]Shape)
	if err := yaml.Unmarshal(buf, &overrides); err != nil {
		return nil, errors.Wrapf(err, "failed to parse dispatch table %s", path)
	}
	for fcn, shape := range overrides {
		if shape.Arity < Variadic {
			return nil, errors.Errorf("function %s: invalid arity %d", fcn, shape.Arity)
		}
		table[fcn] = shape
	}

	return table, nil
}

// Lookup returns the shape for fcn and whether it is a known function.
// Unknown functions get the variadic shape.
func (t Table) Lookup(fcn string) (Shape, bool) {
	shape, ok := t[fcn]
	if !ok {
		return Shape{Arity: Variadic}, false
	}
	return shape, true
}

// Route selects the positional arguments and transient payload that fcn
// is called with.
func (t Table) Route(fcn string, args []string, transient map[string][]byte) (Call, error) {
	call := Call{Fcn: fcn, Transient: transient}
	shape, _ := t.Lookup(fcn)

	switch {
	case shape.Transient:
		if len(transient) == 0 {
			return Call{}, errors.Wrapf(ErrTransientRequired, "function %s", fcn)
		}
		call.Args = []string{}
	case shape.Arity == Variadic:
		call.Args = append([]string{}, args...)
	default:
		if len(args) < shape.Arity {
			return Call{}, errors.Wrapf(ErrTooFewArgs, "function %s expects %d, got %d", fcn, shape.Arity, len(args))
		}
		call.Args = append([]string{}, args[:shape.Arity]...)
	}

	return call, nil
}

// Names lists the known function names in order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Shape) String() string {
	switch {
	case s.Transient:
		return "transient"
	case s.Arity == Variadic:
		return "variadic"
	default:
		return fmt.Sprintf("%d args", s.Arity)
	}
}
