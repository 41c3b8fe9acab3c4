package inbound

import (
	"github.com/shandysiswandi/goverify/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Code issuance & verification
	r.POST("/v1/verifications", end.RequestCode)
	r.POST("/v1/verifications/verify", end.VerifyCode)

	// Operator endpoints (need authenticated & authorization)
	r.GET("/v1/verifications/status", end.CodeStatus)
	r.DELETE("/v1/verifications", end.RevokeCode)
}
