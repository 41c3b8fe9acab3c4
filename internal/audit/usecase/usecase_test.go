package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"

	"github.com/shandysiswandi/goverify/internal/pkg/blob"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
	"github.com/shandysiswandi/goverify/internal/pkg/validator"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

var errBackend = errors.New("backend unavailable")

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type putCall struct {
	bucket string
	key    string
	body   []byte
	opts   blob.PutOptions
}

type listCall struct {
	bucket string
	prefix string
	limit  int32
}

type presignCall struct {
	key    string
	expiry time.Duration
}

// fakeBlob records successful puts and can fail the first N attempts.
type fakeBlob struct {
	mu          sync.Mutex
	puts        []putCall
	putAttempts int
	failPuts    int

	listFn    func(ctx context.Context, bucket, prefix string, opts blob.ListOptions) ([]blob.ObjectInfo, error)
	presignFn func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)

	listCalls    []listCall
	presignCalls []presignCall
}

func (f *fakeBlob) Put(ctx context.Context, bucket, key string, r io.Reader, opts blob.PutOptions) (blob.ObjectInfo, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return blob.ObjectInfo{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.putAttempts++
	if f.failPuts > 0 {
		f.failPuts--
		return blob.ObjectInfo{}, errBackend
	}

	f.puts = append(f.puts, putCall{bucket: bucket, key: key, body: body, opts: opts})

	return blob.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(body))}, nil
}

func (f *fakeBlob) List(ctx context.Context, bucket, prefix string, opts blob.ListOptions) ([]blob.ObjectInfo, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, listCall{bucket: bucket, prefix: prefix, limit: opts.Limit})
	f.mu.Unlock()

	if f.listFn != nil {
		return f.listFn(ctx, bucket, prefix, opts)
	}

	return nil, nil
}

func (f *fakeBlob) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	f.presignCalls = append(f.presignCalls, presignCall{key: key, expiry: expiry})
	f.mu.Unlock()

	if f.presignFn != nil {
		return f.presignFn(ctx, bucket, key, expiry)
	}

	return "https://signed.example/" + key, nil
}

func (f *fakeBlob) Close() error { return nil }

// fakeHasher pseudonymizes by prefixing, which keeps digests readable in
// assertions.
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

type fakeUUID struct {
	mu   sync.Mutex
	next int
}

func (f *fakeUUID) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("uuid-%d", f.next)
}

type testConfig struct {
	ints    map[string]int
	strings map[string]string
}

func (testConfig) Close() error                  { return nil }
func (c testConfig) GetString(key string) string { return c.strings[key] }
func (testConfig) GetBool(string) bool           { return false }
func (c testConfig) GetInt(key string) int       { return c.ints[key] }
func (c testConfig) GetInt64(key string) int64   { return int64(c.ints[key]) }
func (testConfig) GetFloat64(string) float64     { return 0 }
func (c testConfig) GetSecond(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Second
}
func (c testConfig) GetMinute(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Minute
}
func (c testConfig) GetHour(key string) time.Duration {
	return time.Duration(c.ints[key]) * time.Hour
}
func (testConfig) GetBinary(string) []byte         { return nil }
func (testConfig) GetArray(string) []string        { return nil }
func (testConfig) GetMap(string) map[string]string { return nil }

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

	if _, err := e.AddPolicy("admin", "audit", "*"); err != nil {
		t.Fatalf("failed to add policy: %v", err)
	}

	return e
}

func newTestUsecase(t *testing.T, storage *fakeBlob, cfg map[string]int) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	if storage == nil {
		storage = &fakeBlob{}
	}
	if cfg == nil {
		cfg = map[string]int{"modules.audit.batch_size": 100}
	}

	return New(Dependency{
		Storage:   storage,
		Hasher:    fakeHasher{},
		Validator: v,
		Config: testConfig{
			ints:    cfg,
			strings: map[string]string{"modules.audit.archive_bucket": "audit-archive"},
		},
		Clock:      fakeClock{now: testNow},
		UUID:       &fakeUUID{},
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
