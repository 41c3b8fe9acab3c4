package inbound

import (
	"github.com/shandysiswandi/goverify/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Operator endpoints (need authenticated & authorization)
	r.GET("/v1/audit/archives", end.ListArchives)
}
