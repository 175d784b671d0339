package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mercadito-app/mercadito-backend/api/responses"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

const deviceTokenHeader = "X-Device-Token"

// DeviceToken guards the shelf display endpoints with the shared device
// secret. The display firmware has no user session; this header is all it
// sends.
func DeviceToken(cfg config.DeviceConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device token not configured"))
				return
			}

			provided := strings.TrimSpace(r.Header.Get(deviceTokenHeader))
			if provided == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing device token"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Token)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid device token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
