package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marinagate/internal/application"
)

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(p.SiteID))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	handler := RequireAuth(tokens(), sites(), nil)(principalEcho())

	tests := []struct {
		name     string
		token    string
		site     string
		status   int
		code     string
		wantSite string
	}{
		{name: "missing token", status: http.StatusUnauthorized, code: "AUTH_TOKEN_MISSING"},
		{name: "unknown token", token: "nope", status: http.StatusUnauthorized, code: "AUTH_TOKEN_INVALID"},
		{name: "own site", token: "user-token", status: http.StatusOK, wantSite: "norte"},
		{name: "own site named explicitly", token: "user-token", site: "NORTE", status: http.StatusOK, wantSite: "norte"},
		{name: "user cannot switch site", token: "user-token", site: "sul", status: http.StatusForbidden, code: "AUTH_FORBIDDEN"},
		{name: "admin cannot switch site", token: "admin-token", site: "sul", status: http.StatusForbidden, code: "AUTH_FORBIDDEN"},
		{name: "owner switches site", token: "owner-token", site: "sul", status: http.StatusOK, wantSite: "sul"},
		{name: "owner names unknown site", token: "owner-token", site: "leste", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.site != "" {
				req.Header.Set(SiteHeader, tt.site)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.wantSite != "" {
				assert.Equal(t, tt.wantSite, rec.Body.String())
				return
			}
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, rec).ErrorCode)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	handler := RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		principal *application.Principal
		status    int
	}{
		{principal: nil, status: http.StatusForbidden},
		{principal: &userPrincipal, status: http.StatusForbidden},
		{principal: &adminPrincipal, status: http.StatusNoContent},
		{principal: &ownerPrincipal, status: http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.principal != nil {
			req = req.WithContext(ContextWithPrincipal(req.Context(), *tc.principal))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code)
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	t.Parallel()

	observer := &stubObserver{}
	r := chi.NewRouter()
	r.Use(Instrument(observer))
	r.Get("/people/{personID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/people/p-42", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.requests, 2)
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "/people/{personID}", status: http.StatusAccepted}, observer.requests[0])
	assert.Equal(t, http.StatusNotFound, observer.requests[1].status)
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	for header, want := range map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"Basic abc":      "",
		"Bearer ":        "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, extractBearerToken(req), "header %q", header)
	}
}
