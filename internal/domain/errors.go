package domain

import "errors"

var (
	ErrNodeNotFound         = errors.New("node not found")
	ErrEdgeNotFound         = errors.New("edge not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrSelfLoop             = errors.New("edge from and to cannot be the same")
	ErrDanglingReference    = errors.New("reference to missing node")
	ErrDuplicateID          = errors.New("id already in use")
	ErrUnknownComponentKind = errors.New("unknown graph component kind")
	ErrInvalidEntity        = errors.New("invalid entity")
)
