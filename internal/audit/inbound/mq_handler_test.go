package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/messaging"
)

type fakeMessage struct {
	body    []byte
	id      string
	headers []messaging.Header
}

func (f *fakeMessage) Body() []byte                  { return f.body }
func (f *fakeMessage) Key() []byte                   { return nil }
func (f *fakeMessage) Headers() []messaging.Header   { return f.headers }
func (f *fakeMessage) Attributes() map[string]string { return nil }
func (f *fakeMessage) ID() string                    { return f.id }
func (f *fakeMessage) Topic() string                 { return "verification_code_issued" }
func (f *fakeMessage) Subject() string               { return "" }
func (f *fakeMessage) Timestamp() time.Time          { return time.Time{} }
func (f *fakeMessage) Ack(ctx context.Context) error { return nil }

type fixedUUID struct{ value string }

func (f fixedUUID) Generate() string { return f.value }

func TestCodeIssuedAuditDeliversEvent(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	handler := &MQHandler{uc: uc, uuid: fixedUUID{value: "uuid-1"}, ins: instrument.NewNoop()}
	msg := &fakeMessage{
		body: []byte(`{"id":42,"email":"user@example.com","expires_at":"2025-06-01T10:05:00Z","resend_at":"2025-06-01T10:01:00Z","occurred_at":"2025-06-01T10:00:00Z"}`),
		id:   "msg-42",
		headers: []messaging.Header{
			{Key: "cID", Value: []byte("corr-7")},
		},
	}

	// Act
	err := handler.CodeIssuedAudit(context.Background(), msg)

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if uc.issuedIn == nil {
		t.Fatal("expected the event to reach the usecase")
	}
	if uc.issuedIn.ID != 42 || uc.issuedIn.Email != "user@example.com" {
		t.Fatalf("unexpected input %+v", uc.issuedIn)
	}
	want := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	if !uc.issuedIn.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", uc.issuedIn.ExpiresAt, want)
	}
}

func TestCodeIssuedAuditMalformedBody(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	handler := &MQHandler{uc: uc, uuid: fixedUUID{value: "uuid-1"}, ins: instrument.NewNoop()}
	msg := &fakeMessage{body: []byte(`{"id":`)}

	// Act
	err := handler.CodeIssuedAudit(context.Background(), msg)

	// Assert
	if err != nil {
		t.Fatalf("malformed body must be dropped, got %v", err)
	}
	if uc.issuedIn != nil {
		t.Fatal("malformed body must not reach the usecase")
	}
}

func TestCodeIssuedAuditPropagatesFailure(t *testing.T) {
	// Arrange
	wantErr := errors.New("buffer unavailable")
	uc := &fakeUC{issuedErr: wantErr}
	handler := &MQHandler{uc: uc, uuid: fixedUUID{value: "uuid-1"}, ins: instrument.NewNoop()}
	msg := &fakeMessage{body: []byte(`{"id":42,"email":"user@example.com"}`)}

	// Act
	err := handler.CodeIssuedAudit(context.Background(), msg)

	// Assert
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the usecase error to bubble up, got %v", err)
	}
}

func TestVerificationCompletedAuditDeliversEvent(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	handler := &MQHandler{uc: uc, uuid: fixedUUID{value: "uuid-1"}, ins: instrument.NewNoop()}
	msg := &fakeMessage{
		body: []byte(`{"id":42,"email":"user@example.com","verified_at":"2025-06-01T10:02:00Z","attempts_used":3}`),
		id:   "msg-43",
	}

	// Act
	err := handler.VerificationCompletedAudit(context.Background(), msg)

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if uc.completedIn == nil {
		t.Fatal("expected the event to reach the usecase")
	}
	if uc.completedIn.ID != 42 || uc.completedIn.AttemptsUsed != 3 {
		t.Fatalf("unexpected input %+v", uc.completedIn)
	}
	want := time.Date(2025, 6, 1, 10, 2, 0, 0, time.UTC)
	if !uc.completedIn.VerifiedAt.Equal(want) {
		t.Fatalf("VerifiedAt = %v, want %v", uc.completedIn.VerifiedAt, want)
	}
}

func TestVerificationCompletedAuditMalformedBody(t *testing.T) {
	// Arrange
	uc := &fakeUC{}
	handler := &MQHandler{uc: uc, uuid: fixedUUID{value: "uuid-1"}, ins: instrument.NewNoop()}
	msg := &fakeMessage{body: []byte(`not json`)}

	// Act
	err := handler.VerificationCompletedAudit(context.Background(), msg)

	// Assert
	if err != nil {
		t.Fatalf("malformed body must be dropped, got %v", err)
	}
	if uc.completedIn != nil {
		t.Fatal("malformed body must not reach the usecase")
	}
}
