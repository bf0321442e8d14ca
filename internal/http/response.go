package http

import (
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
)

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status     Status               `json:"status,omitempty"`
	Value      string               `json:"value,omitempty"`
	Ranges     []partitionkey.Range `json:"ranges,omitempty"`
	Partitions []routing.Partition  `json:"partitions,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewValueResponse(value string) Response {
	return Response{Status: StatusSuccess, Value: value}
}

func NewRangesResponse(ranges []partitionkey.Range) Response {
	return Response{Status: StatusSuccess, Ranges: ranges}
}

func NewPartitionsResponse(parts []routing.Partition) Response {
	return Response{Status: StatusSuccess, Partitions: parts}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
