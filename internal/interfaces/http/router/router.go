// Package router mounts the billing API's route groups under a versioned prefix.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteInfo describes one mounted endpoint
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

// Router collects domain groups and mounts them on a gin engine
type Router struct {
	engine     *gin.Engine
	apiVersion string
	groups     []*DomainGroup
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the prefix, "v1" by default
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter returns a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount queues groups for Setup
func (r *Router) Mount(groups ...*DomainGroup) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// BasePath is the prefix every group is mounted under, e.g. "/api/v1"
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup registers every mounted group with the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, g := range r.groups {
		g.register(api)
	}
}

// Routes lists the endpoints of every mounted group in mount order
func (r *Router) Routes() []RouteInfo {
	var out []RouteInfo
	for _, g := range r.groups {
		out = append(out, g.routeInfo(r.BasePath())...)
	}
	return out
}

// DomainGroup is the set of endpoints for one resource, such as invoices.
// Middleware added with Use applies to this group only.
type DomainGroup struct {
	name       string
	prefix     string
	routes     []route
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup starts a group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds group-scoped middleware
func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodGet, p, h)
}

func (g *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPost, p, h)
}

func (g *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPut, p, h)
}

func (g *DomainGroup) PATCH(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodPatch, p, h)
}

func (g *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup {
	return g.add(http.MethodDelete, p, h)
}

func (g *DomainGroup) add(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: p, handlers: handlers})
	return g
}

func (g *DomainGroup) register(api *gin.RouterGroup) {
	rg := api.Group(g.prefix, g.middleware...)
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handlers...)
	}
}

func (g *DomainGroup) routeInfo(base string) []RouteInfo {
	prefix := path.Join(base, g.prefix)
	out := make([]RouteInfo, 0, len(g.routes))
	for _, rt := range g.routes {
		out = append(out, RouteInfo{Group: g.name, Method: rt.method, Path: path.Join(prefix, rt.path)})
	}
	return out
}
