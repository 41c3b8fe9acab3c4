package inbound

import (
	"github.com/shandysiswandi/goverify/internal/pkg/router"
	"github.com/shandysiswandi/goverify/internal/verification/usecase"
)

// HTTPEndpoint exposes HTTP handlers for the verification code lifecycle.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode issues a fresh verification code and emails it to the address.
// @Summary Request verification code
// @Description Generates a one-time code for the email and delivers it. Repeated requests inside the resend cooldown are rejected with a Retry-After hint.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body RequestCodeRequest true "Issuance payload"
// @Success 200 {object} router.successResponse{data=RequestCodeResponse} "Code issued"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Resend cooldown active"
// @Failure 503 {object} router.errorResponse "Delivery failed"
// @Router /v1/verifications [post]
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return RequestCodeResponse{}, nil
}

// VerifyCode checks a submitted code and returns a proof token on success.
// @Summary Verify code
// @Description Compares the submitted code against the issued one. Success marks the email verified and returns a short-lived proof token.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Verification payload"
// @Success 200 {object} router.successResponse{data=VerifyCodeResponse} "Email verified"
// @Failure 400 {object} router.errorResponse "Invalid request body or wrong code"
// @Failure 404 {object} router.errorResponse "No code issued for this email"
// @Failure 409 {object} router.errorResponse "Email already verified"
// @Failure 410 {object} router.errorResponse "Code expired"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 423 {object} router.errorResponse "Attempts exhausted"
// @Router /v1/verifications/verify [post]
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	return VerifyCodeResponse{
		Email:      resp.Email,
		VerifiedAt: resp.VerifiedAt,
		Token:      resp.Token,
	}, nil
}

// CodeStatus reports the state of a verification record.
// @Summary Verification status
// @Description Returns record metadata for operators. The stored digest is never included.
// @Tags Verification, Admin
// @Security BearerAuth
// @Produce json
// @Param email query string true "Email address"
// @Success 200 {object} router.successResponse{data=CodeStatusResponse} "Record state"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "No verification for this email"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /v1/verifications/status [get]
func (h *HTTPEndpoint) CodeStatus(r *router.Request) (any, error) {
	resp, err := h.uc.CodeStatus(r.Context(), usecase.CodeStatusInput{Email: r.GetQuery("email")})
	if err != nil {
		return nil, err
	}

	return CodeStatusResponse{
		Email:             resp.Email,
		Verified:          resp.Verified,
		Attempts:          resp.Attempts,
		AttemptsRemaining: resp.AttemptsRemaining,
		ExpiresAt:         resp.ExpiresAt,
		LastSentAt:        resp.LastSentAt,
		CreatedAt:         resp.CreatedAt,
	}, nil
}

// RevokeCode removes a verification record so the email can start over.
// @Summary Revoke verification
// @Description Deletes the record for an email. Used by operators to reset a stuck or abusive flow.
// @Tags Verification, Admin
// @Security BearerAuth
// @Param email query string true "Email address"
// @Success 204 "No Content"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 404 {object} router.errorResponse "No verification for this email"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /v1/verifications [delete]
func (h *HTTPEndpoint) RevokeCode(r *router.Request) (any, error) {
	return nil, h.uc.RevokeCode(r.Context(), usecase.RevokeCodeInput{Email: r.GetQuery("email")})
}
