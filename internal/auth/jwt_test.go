package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("prof", RoleTeacher, "edchain", "key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "key", "edchain")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "prof" || claims.Role != RoleTeacher {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, _ := Issue("prof", RoleTeacher, "edchain", "key", time.Minute, time.Hour)
	if _, err := Parse(pair.AccessToken, "other", "edchain"); err == nil {
		t.Error("expected signature error")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, _ := Issue("prof", RoleTeacher, "someone-else", "key", time.Minute, time.Hour)
	if _, err := Parse(pair.AccessToken, "key", "edchain"); err == nil {
		t.Error("expected issuer mismatch error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, _ := Issue("prof", RoleTeacher, "edchain", "key", -time.Minute, time.Hour)
	if _, err := Parse(pair.AccessToken, "key", "edchain"); err == nil {
		t.Error("expected expiry error")
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", RequireRole("key", "edchain", RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(""); code != http.StatusUnauthorized {
		t.Errorf("no token: code = %d", code)
	}
	if code := do("Bearer garbage"); code != http.StatusUnauthorized {
		t.Errorf("bad token: code = %d", code)
	}

	student, _ := Issue("R1", RoleStudent, "edchain", "key", time.Minute, time.Hour)
	if code := do("Bearer " + student.AccessToken); code != http.StatusForbidden {
		t.Errorf("wrong role: code = %d", code)
	}

	teacher, _ := Issue("prof", RoleTeacher, "edchain", "key", time.Minute, time.Hour)
	if code := do("Bearer " + teacher.AccessToken); code != http.StatusNoContent {
		t.Errorf("teacher token: code = %d", code)
	}
}
