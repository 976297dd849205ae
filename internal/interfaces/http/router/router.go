// Package router assembles the gin engine: the middleware chain and the
// route groups of the public and admin API.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar mounts its routes on a router group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup) []Route
}

// Route is one mounted endpoint, as listed in the startup log
type Route struct {
	Group  string
	Method string
	Path   string
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	logger     *zap.Logger
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the prefix; default "v1"
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithRouteLogger logs every mounted route at debug level
func WithRouteLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts the queued registrars and returns the route table
func (r *Router) Setup() []Route {
	api := r.engine.Group("/api/" + r.apiVersion)
	var routes []Route
	for _, registrar := range r.registrars {
		routes = append(routes, registrar.RegisterRoutes(api)...)
	}
	for _, rt := range routes {
		r.logger.Debug("route mounted",
			zap.String("group", rt.Group),
			zap.String("method", rt.Method),
			zap.String("path", rt.Path))
	}
	return routes
}

// DomainGroup collects the routes of one area of the API. Middleware added
// with Use applies to the group and its subgroups only.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to the group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// GET adds a GET route
func (dg *DomainGroup) GET(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, relativePath, handlers)
}

// POST adds a POST route
func (dg *DomainGroup) POST(relativePath string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, relativePath, handlers)
}

func (dg *DomainGroup) handle(method, relativePath string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: relativePath, handlers: handlers})
	return dg
}

// Group adds a subgroup; an empty prefix shares the parent's path and only
// scopes middleware
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	sub := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, sub)
	return sub
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) []Route {
	group := rg.Group(dg.prefix, dg.middleware...)
	routes := make([]Route, 0, len(dg.routes))
	for _, rd := range dg.routes {
		group.Handle(rd.method, rd.path, rd.handlers...)
		routes = append(routes, Route{
			Group:  dg.name,
			Method: rd.method,
			Path:   joinPath(group.BasePath(), rd.path),
		})
	}
	for _, sub := range dg.subgroups {
		routes = append(routes, sub.RegisterRoutes(group)...)
	}
	return routes
}

// joinPath joins like gin does, keeping no trailing slash for empty paths
func joinPath(base, relative string) string {
	if relative == "" {
		return base
	}
	return path.Join(base, relative)
}
