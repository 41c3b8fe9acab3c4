package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

func TestRevokeCode(t *testing.T) {
	// Arrange
	repoDB := &fakeRepoDB{
		findFn: func(ctx context.Context, email string) (*entity.Verification, error) {
			return &entity.Verification{ID: 7, Email: email}, nil
		},
	}
	uc := newTestUsecase(t, testDeps{repoDB: repoDB})

	// Act
	err := uc.RevokeCode(adminContext(), RevokeCodeInput{Email: "User@example.com "})

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(repoDB.deleted) != 1 || repoDB.deleted[0] != "user@example.com" {
		t.Fatalf("expected normalized delete, got %v", repoDB.deleted)
	}
}

func TestRevokeCodeAuth(t *testing.T) {
	cases := []struct {
		name     string
		ctx      context.Context
		wantCode goerror.Code
	}{
		{name: "no token", ctx: context.Background(), wantCode: goerror.CodeUnauthorized},
		{name: "wrong role", ctx: bystanderContext(), wantCode: goerror.CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repoDB := &fakeRepoDB{}
			uc := newTestUsecase(t, testDeps{repoDB: repoDB})

			err := uc.RevokeCode(tc.ctx, RevokeCodeInput{Email: "user@example.com"})

			var gerr *goerror.Error
			if !errors.As(err, &gerr) || gerr.Code() != tc.wantCode {
				t.Fatalf("expected %v, got %v", tc.wantCode, err)
			}
			if len(repoDB.deleted) != 0 {
				t.Fatal("unauthorized callers must not delete")
			}
		})
	}
}

func TestRevokeCodeNotFound(t *testing.T) {
	repoDB := &fakeRepoDB{}
	uc := newTestUsecase(t, testDeps{repoDB: repoDB})

	err := uc.RevokeCode(adminContext(), RevokeCodeInput{Email: "user@example.com"})

	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(repoDB.deleted) != 0 {
		t.Fatal("nothing to revoke, nothing to delete")
	}
}

func TestRevokeCodeStoreFailure(t *testing.T) {
	repoDB := &fakeRepoDB{
		findFn: func(ctx context.Context, email string) (*entity.Verification, error) {
			return &entity.Verification{ID: 7, Email: email}, nil
		},
		deleteFn: func(ctx context.Context, email string) error {
			return errors.New("pg: connection refused")
		},
	}
	uc := newTestUsecase(t, testDeps{repoDB: repoDB})

	err := uc.RevokeCode(adminContext(), RevokeCodeInput{Email: "user@example.com"})

	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeInternal {
		t.Fatalf("expected server error, got %v", err)
	}
}
