package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"

	"github.com/shandysiswandi/goverify/internal/pkg/clock"
	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/idempotency"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
	"github.com/shandysiswandi/goverify/internal/pkg/validator"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeRepoDB struct {
	findFn      func(ctx context.Context, email string) (*entity.Verification, error)
	saveFn      func(ctx context.Context, rec entity.Verification, resendCutoff time.Time) error
	incrementFn func(ctx context.Context, email, digest string, maxAttempts int) (int, error)
	markFn      func(ctx context.Context, email, digest string, at time.Time) error
	deleteFn    func(ctx context.Context, email string) error

	saved   []entity.Verification
	deleted []string
}

func (f *fakeRepoDB) FindByEmail(ctx context.Context, email string) (*entity.Verification, error) {
	if f.findFn != nil {
		return f.findFn(ctx, email)
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeRepoDB) SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) error {
	f.saved = append(f.saved, rec)
	if f.saveFn != nil {
		return f.saveFn(ctx, rec, resendCutoff)
	}
	return nil
}

func (f *fakeRepoDB) IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (int, error) {
	if f.incrementFn != nil {
		return f.incrementFn(ctx, email, digest, maxAttempts)
	}
	return 1, nil
}

func (f *fakeRepoDB) MarkVerified(ctx context.Context, email, digest string, at time.Time) error {
	if f.markFn != nil {
		return f.markFn(ctx, email, digest, at)
	}
	return nil
}

func (f *fakeRepoDB) DeleteByEmail(ctx context.Context, email string) error {
	f.deleted = append(f.deleted, email)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, email)
	}
	return nil
}

type sentMail struct {
	email     string
	code      string
	expiresAt time.Time
}

type fakeRepoEmail struct {
	sendFn func(ctx context.Context, email, code string, expiresAt time.Time) error
	sent   []sentMail
}

func (f *fakeRepoEmail) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	f.sent = append(f.sent, sentMail{email: email, code: code, expiresAt: expiresAt})
	if f.sendFn != nil {
		return f.sendFn(ctx, email, code, expiresAt)
	}
	return nil
}

type fakeRepoMessaging struct {
	issued    []CodeIssuedEvent
	completed []VerificationCompletedEvent
	publishFn func() error
}

func (f *fakeRepoMessaging) PublishCodeIssued(ctx context.Context, msg CodeIssuedEvent) error {
	f.issued = append(f.issued, msg)
	if f.publishFn != nil {
		return f.publishFn()
	}
	return nil
}

func (f *fakeRepoMessaging) PublishVerificationCompleted(ctx context.Context, msg VerificationCompletedEvent) error {
	f.completed = append(f.completed, msg)
	if f.publishFn != nil {
		return f.publishFn()
	}
	return nil
}

type fakeIdempotency struct {
	execErr error
	ran     []string
	failed  []string
}

func (f *fakeIdempotency) Acquire(ctx context.Context, key string, lockDuration time.Duration) (idempotency.State, error) {
	return idempotency.StateNone, nil
}

func (f *fakeIdempotency) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *fakeIdempotency) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	f.failed = append(f.failed, key)
	return nil
}

func (f *fakeIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...idempotency.Option) error {
	if f.execErr != nil {
		return f.execErr
	}
	f.ran = append(f.ran, key)
	return fn(ctx)
}

type fakeCodes struct {
	code string
	err  error
}

func (f fakeCodes) Generate() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.code, nil
}

// fakeHasher digests by prefixing; Verify recovers the plaintext from it.
type fakeHasher struct {
	hashErr error
}

func (f fakeHasher) Hash(plaintext string) ([]byte, error) {
	if f.hashErr != nil {
		return nil, f.hashErr
	}
	return []byte("digest:" + plaintext), nil
}

func (f fakeHasher) Verify(hashed, plaintext string) bool {
	return hashed == "digest:"+plaintext
}

type fakeUID struct{ next int64 }

func (f *fakeUID) Generate() int64 {
	f.next++
	return f.next
}

type fakeJWT struct {
	token string
	err   error
}

func (f fakeJWT) Generate(subject, purpose string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f fakeJWT) Verify(tokenStr string) (jwt.Claims, error) {
	return jwt.Claims{}, nil
}

type testConfig struct {
	ints    map[string]int
	strings map[string]string
}

func (testConfig) Close() error                   { return nil }
func (c testConfig) GetString(key string) string  { return c.strings[key] }
func (testConfig) GetBool(string) bool            { return false }
func (c testConfig) GetInt(key string) int        { return c.ints[key] }
func (c testConfig) GetInt64(key string) int64    { return int64(c.ints[key]) }
func (testConfig) GetFloat64(string) float64      { return 0 }
func (c testConfig) GetSecond(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Second
}
func (c testConfig) GetMinute(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Minute
}
func (c testConfig) GetHour(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Hour
}
func (testConfig) GetBinary(string) []byte          { return nil }
func (testConfig) GetArray(string) []string         { return nil }
func (testConfig) GetMap(string) map[string]string  { return nil }

var _ io.Closer = testConfig{}

const testModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()

	m, err := model.NewModelFromString(testModel)
	if err != nil {
		t.Fatalf("failed to build casbin model: %v", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("failed to build casbin enforcer: %v", err)
	}

	if _, err := e.AddPolicy("admin", "verifications", "*"); err != nil {
		t.Fatalf("failed to add policy: %v", err)
	}
	if _, err := e.AddPolicy("admin", "audit", "*"); err != nil {
		t.Fatalf("failed to add policy: %v", err)
	}

	return e
}

type testDeps struct {
	repoDB    *fakeRepoDB
	repoEmail *fakeRepoEmail
	messaging *fakeRepoMessaging
	idemp     *fakeIdempotency
	clock     clock.Clocker
	codes     fakeCodes
	hasher    fakeHasher
	jwt       fakeJWT
}

func newTestUsecase(t *testing.T, deps testDeps) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	if deps.repoDB == nil {
		deps.repoDB = &fakeRepoDB{}
	}
	if deps.repoEmail == nil {
		deps.repoEmail = &fakeRepoEmail{}
	}
	if deps.messaging == nil {
		deps.messaging = &fakeRepoMessaging{}
	}
	if deps.idemp == nil {
		deps.idemp = &fakeIdempotency{}
	}
	if deps.clock == nil {
		deps.clock = fakeClock{now: testNow}
	}
	if deps.codes.code == "" && deps.codes.err == nil {
		deps.codes = fakeCodes{code: "123456"}
	}
	if deps.jwt.token == "" && deps.jwt.err == nil {
		deps.jwt = fakeJWT{token: "proof-token"}
	}

	return New(Dependency{
		RepoDB:        deps.repoDB,
		RepoEmail:     deps.repoEmail,
		RepoMessaging: deps.messaging,
		Idempotency:   deps.idemp,
		Validator:     v,
		Config: testConfig{ints: map[string]int{
			"modules.verification.resend_cooldown_seconds": 60,
			"modules.verification.code_ttl_minutes":        5,
			"modules.verification.max_attempts":            5,
		}},
		Codes:      deps.codes,
		Hasher:     deps.hasher,
		UID:        &fakeUID{},
		Clock:      deps.clock,
		JWT:        deps.jwt,
		Instrument: instrument.NewNoop(),
		Enforcer:   newTestEnforcer(t),
	})
}

func adminContext() context.Context {
	clm := jwt.Claims{Role: "admin"}
	clm.Subject = "ops@example.com"
	return jwt.SetAuth(context.Background(), clm)
}

func bystanderContext() context.Context {
	clm := jwt.Claims{Role: "viewer"}
	clm.Subject = "someone@example.com"
	return jwt.SetAuth(context.Background(), clm)
}
