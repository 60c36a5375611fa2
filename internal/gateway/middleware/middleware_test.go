package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(issuer *utils.TokenIssuer, roles ...domain.Role) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(issuer)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).EmployeeID)
	})
	r.GET("/x", handlers...)
	return r
}

func TestJWTAuth(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	token, _, err := issuer.GenerateToken("e1", "a@b.c", "r1", "SERVER")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		roles  []domain.Role
		want   int
	}{
		{"no header", "", nil, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", nil, http.StatusUnauthorized},
		{"valid token", "Bearer " + token, nil, http.StatusOK},
		{"role allowed", "Bearer " + token, []domain.Role{domain.RoleManager, domain.RoleServer}, http.StatusOK},
		{"role denied", "Bearer " + token, []domain.Role{domain.RoleManager}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protectedRouter(issuer, tt.roles...).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "e1" {
				t.Fatalf("body = %q, want e1", w.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	if _, err := RateLimit("lots"); err == nil {
		t.Fatal("RateLimit(\"lots\") error = nil, want error")
	}

	mw, err := RateLimit("2-M")
	if err != nil {
		t.Fatalf("RateLimit: %v", err)
	}
	r := gin.New()
	r.Use(mw)
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 200 429]", codes)
	}
}

func TestBearerToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	if got := BearerToken(c); got != "q" {
		t.Fatalf("BearerToken() = %q, want q", got)
	}
	c.Request.Header.Set("Authorization", "Bearer h")
	if got := BearerToken(c); got != "h" {
		t.Fatalf("BearerToken() = %q, want h", got)
	}
}

func TestTenantScope(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	token, _, err := issuer.GenerateToken("e1", "a@b.c", "r1", "MANAGER")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	r := gin.New()
	r.GET("/x", JWTAuth(issuer), TenantScope(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusOK},
		{"?restaurantId=r1", http.StatusOK},
		{"?restaurantId=r2", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%q: status = %d, want %d", tt.query, w.Code, tt.want)
		}
	}
}
