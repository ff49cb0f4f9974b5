package graph

import (
	"github.com/apache/arrow/go/v10/arrow"

	"graphetl/internal/errors"
)

// Endpoint is one side of a relationship: the node label it points at and
// the type its values must be cast to.
type Endpoint struct {
	Label string
	Type  arrow.DataType
}

// Endpoints are the resolved source and destination of a relationship file.
type Endpoints struct {
	Src Endpoint
	Dst Endpoint
}

// ResolveEndpoints parses the endpoint labels from header and looks up their
// id types in reg.
//
// Errors:
//   - ErrNotEdgeHeader if the header is not a relationship header.
//   - ErrUnresolvedEndpoint if either label has no recorded id type.
func ResolveEndpoints(header []string, reg *IDTypes) (Endpoints, error) {
	src, dst, err := EdgeLabels(header)
	if err != nil {
		return Endpoints{}, err
	}

	var missing []string
	srcType, ok := reg.Lookup(src)
	if !ok {
		missing = append(missing, src)
	}
	dstType, ok := reg.Lookup(dst)
	if !ok && dst != src {
		missing = append(missing, dst)
	}
	if len(missing) > 0 {
		return Endpoints{}, errors.Newf(errors.ErrUnresolvedEndpoint, "no node table for label(s) %v", missing)
	}

	return Endpoints{
		Src: Endpoint{Label: src, Type: srcType},
		Dst: Endpoint{Label: dst, Type: dstType},
	}, nil
}
