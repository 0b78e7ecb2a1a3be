package router

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCoordinatorRunSucceeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var committed int
	ops := []SubOperation{
		{Name: "debit", Do: func(context.Context) error { committed++; return nil }},
		{Name: "anchor", Do: func(context.Context) error { committed++; return nil }},
	}
	if err := (Coordinator{}).Run(ctx, ops); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if committed != 2 {
		t.Fatalf("expected both sub-operations to run, got %d", committed)
	}
}

func TestCoordinatorRollsBackOnFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rolledBack := false
	ops := []SubOperation{
		{
			Name:     "debit",
			Do:       func(context.Context) error { return nil },
			Rollback: func() { rolledBack = true },
		},
		{
			Name: "anchor",
			Do:   func(context.Context) error { return errors.New("anchor failed") },
		},
	}
	err := (Coordinator{}).Run(ctx, ops)
	if err == nil {
		t.Fatalf("expected failure to propagate")
	}
	if !rolledBack {
		t.Fatalf("expected the completed sub-operation to roll back")
	}
}

func TestCoordinatorTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ops := []SubOperation{
		{Name: "slow", Do: func(ctx context.Context) error {
			select {
			case <-time.After(200 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
	}
	err := (Coordinator{}).Run(ctx, ops)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}
