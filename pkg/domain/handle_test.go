package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/sot/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestStack_Validate(t *testing.T) {
	tests := []struct {
		name    string
		stack   domain.Stack
		wantErr bool
	}{
		{name: "single level", stack: domain.Stack{0}},
		{name: "ordered levels", stack: domain.Stack{2, 0, 1}},
		{name: "empty", stack: domain.Stack{}, wantErr: true},
		{name: "nil", wantErr: true},
		{name: "repeated task", stack: domain.Stack{0, 1, 0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stack.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDedupConstraints(t *testing.T) {
	got := domain.DedupConstraints(
		[]domain.ConstraintHandle{3, 1},
		nil,
		[]domain.ConstraintHandle{1, 2, 3},
		[]domain.ConstraintHandle{4},
	)
	assert.Equal(t, []domain.ConstraintHandle{3, 1, 2, 4}, got)
	assert.Nil(t, domain.DedupConstraints())
}

func TestHandleStrings(t *testing.T) {
	assert.Equal(t, "c#4", domain.ConstraintHandle(4).String())
	assert.Equal(t, "t#0", domain.TaskHandle(0).String())
}

func TestErrorHierarchy(t *testing.T) {
	assert.True(t, errors.Is(domain.ErrInfeasible, domain.ErrSolveFailure))
	assert.True(t, errors.Is(domain.ErrInvalidLambda, domain.ErrValidation))
	assert.False(t, errors.Is(domain.ErrSolveFailure, domain.ErrInfeasible))
}

func TestSnapshot_Names(t *testing.T) {
	s := domain.NewSnapshot(7)
	s.Vectors["solution_0"] = []float64{1}
	s.Matrices["H_0"] = domain.Matrix{Rows: 1, Cols: 2, Data: []float64{1, 2}}
	s.Vectors["g_0"] = []float64{0}

	assert.Equal(t, []string{"H_0", "g_0", "solution_0"}, s.Names())
	assert.Equal(t, 2.0, s.Matrices["H_0"].At(0, 1))
	assert.Equal(t, uint64(7), s.Tick)
}
