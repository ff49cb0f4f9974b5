// Package graph classifies delimited files into node and relationship tables
// and resolves relationship endpoints against the node identifier types seen
// so far in a run.
package graph

import (
	"strings"

	"graphetl/internal/errors"
	"graphetl/internal/naming"
)

// Role is what a file contributes to the graph.
type Role int

const (
	RoleUnrecognized Role = iota
	RoleNode
	RoleEdge
)

func (r Role) String() string {
	switch r {
	case RoleNode:
		return "node"
	case RoleEdge:
		return "edge"
	default:
		return "unrecognized"
	}
}

// Classify decides a file's role from its raw header tokens alone.
//
//   - RoleUnrecognized when the header has fewer than two tokens.
//   - RoleNode when the first token, trimmed and case-folded, is "id".
//   - RoleEdge when EdgeLabels accepts the header.
//   - RoleUnrecognized otherwise.
func Classify(header []string) Role {
	if len(header) < 2 {
		return RoleUnrecognized
	}
	if strings.ToLower(strings.TrimSpace(header[0])) == "id" {
		return RoleNode
	}
	if _, _, err := EdgeLabels(header); err == nil {
		return RoleEdge
	}
	return RoleUnrecognized
}

// EdgeLabels extracts the normalized source and destination labels from the
// first two header tokens, which must look like "<Label>.<field>".
//
// Errors:
//   - ErrNotEdgeHeader if there are fewer than two tokens, either token lacks a
//     '.', or either label part is blank.
func EdgeLabels(header []string) (src, dst string, err error) {
	if len(header) < 2 {
		return "", "", errors.Newf(errors.ErrNotEdgeHeader, "header has %d columns, want at least 2", len(header))
	}
	src, err = endpointLabel(header[0])
	if err != nil {
		return "", "", err
	}
	dst, err = endpointLabel(header[1])
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}

func endpointLabel(token string) (string, error) {
	label, _, ok := strings.Cut(token, ".")
	if !ok {
		return "", errors.Newf(errors.ErrNotEdgeHeader, "column %q is not of the form <Label>.<field>", token)
	}
	norm, err := naming.Label(label)
	if err != nil {
		return "", errors.Newf(errors.ErrNotEdgeHeader, "column %q has an empty label", token)
	}
	return norm, nil
}
