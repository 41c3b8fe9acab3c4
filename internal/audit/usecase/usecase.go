package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/casbin/casbin/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/goverify/internal/audit/entity"
	"github.com/shandysiswandi/goverify/internal/pkg/blob"
	"github.com/shandysiswandi/goverify/internal/pkg/clock"
	"github.com/shandysiswandi/goverify/internal/pkg/config"
	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/hash"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/pkg/jwt"
	"github.com/shandysiswandi/goverify/internal/pkg/uid"
	"github.com/shandysiswandi/goverify/internal/pkg/validator"
)

type Usecase struct {
	storage   blob.Storage
	hasher    hash.Hash
	validator validator.Validator
	cfg       config.Config
	clock     clock.Clocker
	uuid      uid.StringID
	ins       instrument.Instrumentation
	enforcer  *casbin.Enforcer

	mu      sync.Mutex
	pending []entity.Record
}

type Dependency struct {
	Storage    blob.Storage
	Hasher     hash.Hash
	Validator  validator.Validator
	Config     config.Config
	Clock      clock.Clocker
	UUID       uid.StringID
	Instrument instrument.Instrumentation
	Enforcer   *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		storage:   dep.Storage,
		hasher:    dep.Hasher,
		validator: dep.Validator,
		cfg:       dep.Config,
		clock:     dep.Clock,
		uuid:      dep.UUID,
		ins:       dep.Instrument,
		enforcer:  dep.Enforcer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.usecase").Start(ctx, name)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *Usecase) bucket() string {
	return strings.TrimSpace(s.cfg.GetString("modules.audit.archive_bucket"))
}

func (s *Usecase) batchSize() int {
	size := s.cfg.GetInt("modules.audit.batch_size")
	if size <= 0 {
		size = 100
	}
	return size
}

func (s *Usecase) flushInterval() time.Duration {
	interval := s.cfg.GetSecond("modules.audit.flush_interval_seconds")
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return interval
}

func (s *Usecase) presignTTL() time.Duration {
	ttl := s.cfg.GetMinute("modules.audit.presign_ttl_minutes")
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return ttl
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "subject", clm.Subject, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
