package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/brgy-records-api/internal/models"
	"github.com/noah-isme/brgy-records-api/internal/service"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
	"github.com/noah-isme/brgy-records-api/pkg/logger"
	"github.com/noah-isme/brgy-records-api/pkg/middleware/requestid"
)

type stubValidator map[string]*models.AccessClaims

func (s stubValidator) ValidateToken(token string) (*models.AccessClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type captureAudit struct {
	entries []models.AuditLog
}

func (c *captureAudit) Create(ctx context.Context, log *models.AuditLog) error {
	c.entries = append(c.entries, *log)
	return nil
}

var tokens = stubValidator{
	"admin": {UserID: "u-admin", Role: models.RoleAdmin},
	"staff": {UserID: "u-staff", Role: models.RoleStaff},
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/records/:id", handlers...)
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/7?format=csv", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTSetsCallerAndLogUser(t *testing.T) {
	var caller models.Caller
	var logUser string
	r := newRouter(JWT(tokens), func(c *gin.Context) {
		caller = Caller(c)
		logUser = c.GetString(logger.UserIDKey)
		c.Status(http.StatusNoContent)
	})

	rec := do(r, "staff")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-staff", caller.UserID)
	assert.Equal(t, models.RoleStaff, caller.Role)
	assert.Equal(t, "test-agent", caller.UserAgent)
	assert.NotEmpty(t, caller.IP)
	assert.Equal(t, "u-staff", logUser)
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter(JWT(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, rec))

	rec = do(r, "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/1", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallerWithoutClaimsIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, Caller(c).Authenticated())
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(JWT(tokens), RequireRoles(AdminRoles...), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, "admin").Code)
	rec := do(r, "staff")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, rec))

	unauth := newRouter(RequireRoles(WriterRoles...), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, do(unauth, "").Code)
}

func TestAuditExportRecordsSuccessOnly(t *testing.T) {
	repo := &captureAudit{}
	audit := service.NewAuditService(repo, nil)

	ok := newRouter(JWT(tokens), AuditExport(audit, models.AuditResourceBeneficiary), func(c *gin.Context) { c.Status(http.StatusOK) })
	do(ok, "staff")
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, models.AuditActionRecordExport, entry.Action)
	assert.Equal(t, "7", *entry.ResourceID)
	assert.Equal(t, "u-staff", *entry.UserID)
	assert.Contains(t, string(entry.NewValues), "format=csv")

	failing := newRouter(JWT(tokens), AuditExport(audit, models.AuditResourceBeneficiary), func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})
	do(failing, "staff")
	assert.Len(t, repo.entries, 1)
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics), func(c *gin.Context) { c.Status(http.StatusOK) })
	do(r, "")
	do(r, "")
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func TestMetricsMiddlewareSkipsProbes(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics, "/records/:id"), func(c *gin.Context) { c.Status(http.StatusOK) })
	do(r, "")
	assert.Equal(t, uint64(0), metrics.Snapshot().RequestsTotal)
}

func TestResponseMetaCollectsValues(t *testing.T) {
	var meta map[string]interface{}
	r := newRouter(requestid.Middleware(), WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "unread", 3)
		meta = Meta(c)
		c.Status(http.StatusOK)
	})
	rec := do(r, "")
	assert.Equal(t, true, meta[MetaCacheHit])
	assert.Equal(t, 3, meta["unread"])
	assert.Equal(t, rec.Header().Get(requestid.HeaderKey), meta[MetaRequestID])
	assert.Contains(t, meta, MetaProcessingTime)
}

func TestMetaWithoutMiddleware(t *testing.T) {
	var meta map[string]interface{}
	r := newRouter(func(c *gin.Context) {
		SetMeta(c, "unread", 0)
		meta = Meta(c)
		c.Status(http.StatusOK)
	})
	do(r, "")
	assert.Equal(t, map[string]interface{}{"unread": 0}, meta)
}
