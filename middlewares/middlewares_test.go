package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/utils"
	"google.golang.org/api/idtoken"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationMiddleware(), BranchMiddleware(appctx.Branch{BranchId: "b1"}))
	api := r.Group("/api", AuthMiddleware("/api/auth/login"))
	api.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.GET("/me", func(c *gin.Context) {
		username, _ := utils.GetUsernameFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"username": username, "branch": appctx.BranchId(c.Request.Context())})
	})
	api.GET("/admin", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	token, err := utils.JwtGenerate("u1", "asha", "staff")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"login is public", http.MethodPost, "/api/auth/login", "", http.StatusNoContent},
		{"missing token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", http.MethodGet, "/api/me", "Bearer " + token, http.StatusOK},
		{"wrong role", http.MethodGet, "/api/admin", "Bearer " + token, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("x-correlation-id", "cid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("x-correlation-id"); got != "cid-1" {
		t.Fatalf("correlation id %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	if w.Header().Get("x-correlation-id") == "" {
		t.Fatalf("no correlation id generated")
	}
}

func TestPubSubPushMiddleware_SharedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		auth PubSubPushAuth
		path string
		want int
	}{
		{"not configured", PubSubPushAuth{}, "/push?token=", http.StatusUnauthorized},
		{"missing token", PubSubPushAuth{Token: "s3cret"}, "/push", http.StatusUnauthorized},
		{"wrong token", PubSubPushAuth{Token: "s3cret"}, "/push?token=guess", http.StatusUnauthorized},
		{"right token", PubSubPushAuth{Token: "s3cret"}, "/push?token=s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		r := gin.New()
		r.POST("/push", PubSubPushMiddleware(tc.auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, w.Code, tc.want)
		}
	}
}

func TestPubSubPushMiddleware_OIDC(t *testing.T) {
	gin.SetMode(gin.TestMode)
	orig := validateIDToken
	t.Cleanup(func() { validateIDToken = orig })
	validateIDToken = func(ctx context.Context, token string, audience string) (*idtoken.Payload, error) {
		if token != "good" || audience != "https://branch.example/pubsub/sync" {
			return nil, errors.New("invalid token")
		}
		return &idtoken.Payload{Audience: audience, Claims: map[string]interface{}{
			"email":          "push@project.iam.gserviceaccount.com",
			"email_verified": true,
		}}, nil
	}

	auth := PubSubPushAuth{
		Audience:       "https://branch.example/pubsub/sync",
		ServiceAccount: "push@project.iam.gserviceaccount.com",
	}
	r := gin.New()
	r.POST("/push", PubSubPushMiddleware(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, tc := range []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusNoContent},
	} {
		req := httptest.NewRequest(http.MethodPost, "/push", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("header %q: got %d, want %d", tc.header, w.Code, tc.want)
		}
	}

	auth.ServiceAccount = "someone-else@project.iam.gserviceaccount.com"
	r = gin.New()
	r.POST("/push", PubSubPushMiddleware(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodPost, "/push", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong service account: got %d", w.Code)
	}
}
