package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.String(http.StatusOK, c.FullPath()) }

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.Setup())
}

func TestRouterWithRouteLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	engine := gin.New()
	NewRouter(engine, WithRouteLogger(zap.New(core))).
		Register(NewDomainGroup("visitors", "/visitors").GET("", ok).POST("", ok)).
		Setup()

	entries := recorded.FilterMessage("route mounted").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/api/v1/visitors", entries[0].ContextMap()["path"])
	assert.Equal(t, http.MethodPost, entries[1].ContextMap()["method"])
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	r.Register(NewDomainGroup("visitors", "/visitors").GET("", ok))
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/visitors").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/visitors").Code)
}

func TestDomainGroup_Routes(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("registrations", "/registrations").
		GET("/status", ok).
		POST("", ok).
		GET("/:id", ok)
	routes := NewRouter(engine).Register(group).Setup()

	assert.Equal(t, []Route{
		{Group: "registrations", Method: http.MethodGet, Path: "/api/v1/registrations/status"},
		{Group: "registrations", Method: http.MethodPost, Path: "/api/v1/registrations"},
		{Group: "registrations", Method: http.MethodGet, Path: "/api/v1/registrations/:id"},
	}, routes)

	w := serve(engine, http.MethodGet, "/api/v1/registrations/status")
	assert.Equal(t, "/api/v1/registrations/status", w.Body.String())

	w = serve(engine, http.MethodGet, "/api/v1/registrations/abc")
	assert.Equal(t, "/api/v1/registrations/:id", w.Body.String())

	w = serve(engine, http.MethodPost, "/api/v1/registrations")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDomainGroup_MiddlewareScopedToSubgroup(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }

	admin := NewDomainGroup("admin", "/admin").POST("/login", ok)
	admin.Group("session", "").Use(deny).GET("/registrations", ok)
	routes := NewRouter(engine).Register(admin).Setup()

	require.Len(t, routes, 2)
	assert.Equal(t, Route{Group: "session", Method: http.MethodGet, Path: "/api/v1/admin/registrations"}, routes[1])

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/admin/login").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/admin/registrations").Code)
}

func TestDomainGroup_MiddlewareOrder(t *testing.T) {
	engine := gin.New()
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) {
			order = append(order, name)
			c.Next()
		}
	}

	NewRouter(engine).Register(
		NewDomainGroup("g", "/g").Use(mark("first"), mark("second")).GET("", mark("handler")),
	).Setup()
	serve(engine, http.MethodGet, "/api/v1/g")

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
