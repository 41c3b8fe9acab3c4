package inbound

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shandysiswandi/goverify/internal/audit/usecase"
	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/router"
)

type fakeUC struct {
	listIn  *usecase.ListArchivesInput
	listOut *usecase.ListArchivesOutput
	listErr error

	issuedIn  *usecase.ConsumeCodeIssuedInput
	issuedErr error

	completedIn  *usecase.ConsumeVerificationCompletedInput
	completedErr error
}

func (f *fakeUC) ListArchives(ctx context.Context, in usecase.ListArchivesInput) (*usecase.ListArchivesOutput, error) {
	f.listIn = &in
	return f.listOut, f.listErr
}

func (f *fakeUC) ConsumeCodeIssued(ctx context.Context, in usecase.ConsumeCodeIssuedInput) error {
	f.issuedIn = &in
	return f.issuedErr
}

func (f *fakeUC) ConsumeVerificationCompleted(ctx context.Context, in usecase.ConsumeVerificationCompletedInput) error {
	f.completedIn = &in
	return f.completedErr
}

func TestListArchivesEndpoint(t *testing.T) {
	// Arrange
	updated := time.Date(2025, 6, 1, 9, 59, 0, 0, time.UTC)
	uc := &fakeUC{
		listOut: &usecase.ListArchivesOutput{
			Prefix: "audit/2025/06/01/",
			Archives: []usecase.ArchiveItem{
				{Key: "audit/2025/06/01/a.jsonl", Size: 120, UpdatedAt: updated, URL: "https://signed.example/a"},
			},
		},
	}
	end := &HTTPEndpoint{uc: uc}
	req := &router.Request{Request: httptest.NewRequest("GET", "/v1/audit/archives?date=2025-06-01&limit=5", nil)}

	// Act
	out, err := end.ListArchives(req)

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if uc.listIn == nil || uc.listIn.Date != "2025-06-01" || uc.listIn.Limit != 5 {
		t.Fatalf("unexpected usecase input %+v", uc.listIn)
	}
	resp, ok := out.(ListArchivesResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", out)
	}
	if resp.Prefix != "audit/2025/06/01/" || len(resp.Archives) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Archives[0].URL != "https://signed.example/a" || !resp.Archives[0].UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected archive %+v", resp.Archives[0])
	}
}

func TestListArchivesEndpointDefaults(t *testing.T) {
	// Arrange
	uc := &fakeUC{listOut: &usecase.ListArchivesOutput{Prefix: "audit/2025/06/01/"}}
	end := &HTTPEndpoint{uc: uc}
	req := &router.Request{Request: httptest.NewRequest("GET", "/v1/audit/archives", nil)}

	// Act
	out, err := end.ListArchives(req)

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if uc.listIn == nil || uc.listIn.Date != "" || uc.listIn.Limit != 0 {
		t.Fatalf("unexpected usecase input %+v", uc.listIn)
	}
	resp, ok := out.(ListArchivesResponse)
	if !ok || len(resp.Archives) != 0 {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestListArchivesEndpointRejectsBadLimit(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	end := &HTTPEndpoint{uc: uc}
	req := &router.Request{Request: httptest.NewRequest("GET", "/v1/audit/archives?limit=ten", nil)}

	// Act
	_, err := end.ListArchives(req)

	// Assert
	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeInvalidFormat {
		t.Fatalf("expected an invalid format error, got %v", err)
	}
	if uc.listIn != nil {
		t.Fatal("a bad limit must not reach the usecase")
	}
}

func TestListArchivesEndpointPropagatesError(t *testing.T) {
	// Arrange
	wantErr := goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	uc := &fakeUC{listErr: wantErr}
	end := &HTTPEndpoint{uc: uc}
	req := &router.Request{Request: httptest.NewRequest("GET", "/v1/audit/archives", nil)}

	// Act
	_, err := end.ListArchives(req)

	// Assert
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the usecase error, got %v", err)
	}
}
