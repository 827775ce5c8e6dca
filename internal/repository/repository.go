// Package repository declares the storage interfaces the service layer
// depends on.
package repository

import (
	"context"

	"github.com/ourobouros/samlocal/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// RunRepository stores the record of each completed invocation.
type RunRepository interface {
	Create(ctx context.Context, run *model.Run) error
	GetByID(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, opts ListOptions) ([]model.Run, error)
}
