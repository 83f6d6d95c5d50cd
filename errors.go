package cvserve

import (
	"errors"
	"net/http"

	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/gitsync"
	"github.com/DigitumDei/cvserve/internal/pipeline"
)

// Caller-visible error text.
const (
	GenericErrorMessage = "An unexpected error occurred while processing your request."
	syncErrorPrefix     = "Git command error: "
)

// errorResponse maps err to the status and body returned to the caller.
// Only classified errors expose their text.
func errorResponse(err error) (int, string) {
	var (
		cfgErr   *config.ConfigError
		notFound *pipeline.NotFoundError
		syncErr  *gitsync.SyncError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, cfgErr.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &syncErr):
		return http.StatusInternalServerError, syncErrorPrefix + syncErr.Diagnostic()
	default:
		return http.StatusInternalServerError, GenericErrorMessage
	}
}
