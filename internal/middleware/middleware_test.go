package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/identity"
	"feedback-backend/internal/metrics"
	"feedback-backend/internal/models"
	"feedback-backend/internal/respond"
)

func TestCheckRole(t *testing.T) {
	assert.NoError(t, CheckRole(models.Identity{UserID: "m", Role: models.RoleModerator}, models.RoleModerator))
	err := CheckRole(models.Identity{UserID: "u", Role: models.RoleUser}, models.RoleModerator)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func newTestRouter(log logrus.FieldLogger, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger(log, m))
	r.Use(ResolveIdentity(identity.NewHeaderResolver()))
	r.Get("/open", func(w http.ResponseWriter, r *http.Request) {
		_, ok := GetIdentity(r.Context())
		respond.JSON(w, http.StatusOK, map[string]bool{"identified": ok})
	})
	r.With(RequireRole(models.RoleModerator)).Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
	})
	return r
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		user string
		role string
		want int
		kind apperr.Kind
	}{
		{name: "moderator", user: "mod", role: "moderator", want: http.StatusOK},
		{name: "user", user: "alice", role: "user", want: http.StatusForbidden, kind: apperr.KindForbidden},
		{name: "no role", user: "alice", want: http.StatusForbidden, kind: apperr.KindForbidden},
		{name: "anonymous", role: "moderator", want: http.StatusUnauthorized, kind: apperr.KindUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()
			router := newTestRouter(logger, nil)

			req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
			if tt.user != "" {
				req.Header.Set(identity.HeaderUser, tt.user)
			}
			if tt.role != "" {
				req.Header.Set(identity.HeaderRole, tt.role)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			require.Len(t, hook.AllEntries(), 1)
			entry := hook.LastEntry()
			assert.Equal(t, "http_request", entry.Data["action"])
			assert.Equal(t, "/items/{id}", entry.Data["route"])
			if tt.kind != "" {
				assert.Equal(t, tt.kind, entry.Data["error_kind"])
				assert.Equal(t, "error", entry.Data["outcome"])
				assert.NotContains(t, rec.Body.String(), "42")
			} else {
				assert.Equal(t, "success", entry.Data["outcome"])
				assert.Equal(t, "mod", entry.Data["actor"])
			}
		})
	}
}

func TestOpenRouteAllowsAnonymous(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	m := metrics.New()
	router := newTestRouter(logger, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"identified":false}`, rec.Body.String())
	assert.Equal(t, "", hook.LastEntry().Data["actor"])
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/open", "200")), 0.0001)
}

func TestRequestLoggerRecordsPanicAsFault(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := chi.NewRouter()
	r.Use(RequestLogger(logger, nil))
	r.Use(chimw.Recoverer)
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "fault", entry.Data["outcome"])
}

func TestRequestLoggerFoldsUnroutedPaths(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	m := metrics.New()
	router := newTestRouter(logger, m)

	for _, path := range []string{"/nowhere", "/a/b/c", "/x?y=1", "/%7Eroot", "/items"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests))
	assert.InDelta(t, 5, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "unmatched", "404")), 0.0001)
	assert.Equal(t, "unmatched", hook.LastEntry().Data["route"])
	assert.Equal(t, "/items", hook.LastEntry().Data["path"])
}
