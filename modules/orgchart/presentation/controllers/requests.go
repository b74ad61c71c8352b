package controllers

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// optional distinguishes an absent JSON field from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type bulkIDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type bulkMoveRequest struct {
	IDs          []uuid.UUID `json:"ids"`
	DepartmentID uuid.UUID   `json:"departmentId"`
}

type peopleUpdates struct {
	Title        optional[string] `json:"title"`
	DepartmentID *uuid.UUID       `json:"departmentId"`
}

type bulkEditPeopleRequest struct {
	IDs     []uuid.UUID   `json:"ids"`
	Updates peopleUpdates `json:"updates"`
}

type departmentUpdates struct {
	ParentID optional[uuid.UUID] `json:"parentId"`
}

type bulkEditDepartmentsRequest struct {
	IDs     []uuid.UUID       `json:"ids"`
	Updates departmentUpdates `json:"updates"`
}
