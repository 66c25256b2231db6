package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/sensorhub/internal/pkg/contxt"
	"github.com/anicoll/sensorhub/internal/pkg/model"
)

type tokenValidator interface {
	ValidateToken(token string) (int64, error)
}

type userLookup interface {
	GetUser(ctx context.Context, id int64) (model.User, error)
}

// Middleware rejects requests without a valid bearer access token for an
// existing user, and stores the user id as the request owner otherwise.
// Every failure gets the same 401 response.
func Middleware(tokens tokenValidator, users userLookup) func(http.Handler) http.Handler {
	logger := zap.L()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}
			userID, err := tokens.ValidateToken(token)
			if err != nil {
				logger.Debug("rejected token", zap.Error(err))
				unauthorized(w)
				return
			}
			if _, err := users.GetUser(r.Context(), userID); err != nil {
				logger.Debug("token for unknown user", zap.Int64("user_id", userID), zap.Error(err))
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(contxt.WithOwner(r.Context(), userID)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"Unauthorized"}`))
}
