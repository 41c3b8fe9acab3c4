package inbound

import (
	"github.com/shandysiswandi/goverify/internal/audit/usecase"
	"github.com/shandysiswandi/goverify/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// @Summary List audit archives
// @Description Returns archive objects for one day with presigned download links.
// @Tags Audit, Admin
// @Security BearerAuth
// @Produce json
// @Param date query string false "Day to list, formatted 2006-01-02, defaults to today"
// @Param limit query int false "Maximum number of objects, defaults to 50"
// @Success 200 {object} router.successResponse{data=ListArchivesResponse} "Archive objects"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /v1/audit/archives [get]
func (h *HTTPEndpoint) ListArchives(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ListArchives(r.Context(), usecase.ListArchivesInput{
		Date:  r.GetQuery("date"),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	archives := make([]ArchiveResponse, 0, len(resp.Archives))
	for _, item := range resp.Archives {
		archives = append(archives, ArchiveResponse{
			Key:       item.Key,
			Size:      item.Size,
			UpdatedAt: item.UpdatedAt,
			URL:       item.URL,
		})
	}

	return ListArchivesResponse{Prefix: resp.Prefix, Archives: archives}, nil
}
