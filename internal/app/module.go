package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/goverify/internal/audit"
	"github.com/shandysiswandi/goverify/internal/verification"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.verification.enabled") {
		if err := verification.New(verification.Dependency{
			Ctx:         a.ctx,
			Store:       a.store,
			Messaging:   a.messaging,
			Mail:        a.mail,
			Idempotency: a.idemp,
			Enforcer:    a.casbin,
			Router:      a.router,
			Goroutine:   a.goroutine,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			Codes:       a.codes,
			Hasher:      a.codeHasher,
			Clock:       a.clock,
			Validator:   a.validator,
			JWT:         a.jwt,
		}); err != nil {
			slog.Error("failed to init module verification", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.audit.enabled") {
		if err := audit.New(audit.Dependency{
			Ctx:        a.ctx,
			Storage:    a.blob,
			Messaging:  a.messaging,
			Enforcer:   a.casbin,
			Router:     a.router,
			Goroutine:  a.goroutine,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Hasher:     a.pseudonymHasher,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module audit", "error", err)
			os.Exit(1)
		}
	}
}
