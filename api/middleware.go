package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

type routeKey struct{}

// routeLabel is filled in once the router has picked a handler, so that
// wrappers running outside the router can report the route.
type routeLabel struct {
	name string
}

// withRouteLabel returns r carrying a routeLabel, reusing one an outer
// wrapper already attached.
func withRouteLabel(r *http.Request) (*http.Request, *routeLabel) {
	if l, ok := r.Context().Value(routeKey{}).(*routeLabel); ok {
		return r, l
	}
	l := &routeLabel{}
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, l)), l
}

func (l *routeLabel) String() string {
	if l.name == "" {
		return "unknown"
	}
	return l.name
}

func setRouteName(r *http.Request, name string) {
	if l, ok := r.Context().Value(routeKey{}).(*routeLabel); ok {
		l.name = name
	}
}

// routeName returns the name of the matched route, or its path template.
func routeName(r *http.Request) string {
	if l, ok := r.Context().Value(routeKey{}).(*routeLabel); ok && l.name != "" {
		return l.name
	}
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unknown"
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if tpl, err := route.GetPathTemplate(); err == nil {
		return tpl
	}
	return "unknown"
}

// recordRoute runs inside the router and publishes the matched route.
func recordRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRouteName(r, routeName(r))
		next.ServeHTTP(w, r)
	})
}

// extractTracing starts a server span for the request, continuing any
// trace propagated in the request headers. The span is renamed after
// the route once the router has run.
func (h *Handler) extractTracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, label := withRouteLabel(r)

		parent, err := h.tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header))
		if err != nil {
			parent = nil
		}
		span := h.tracer.StartSpan("HTTP "+r.Method, ext.RPCServerOption(parent))
		defer span.Finish()

		ext.HTTPMethod.Set(span, r.Method)
		ext.HTTPUrl.Set(span, r.URL.String())
		ext.Component.Set(span, "flexdb")

		m := httpsnoop.CaptureMetrics(next, w, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))

		span.SetOperationName("HTTP " + label.String())
		ext.HTTPStatusCode.Set(span, uint16(m.Code))
		if m.Code >= http.StatusInternalServerError {
			ext.Error.Set(span, true)
		}
	})
}

func (h *Handler) collectMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, label := withRouteLabel(r)
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := label.String()
		h.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(m.Code)).Inc()
		h.metrics.duration.WithLabelValues(route, r.Method).Observe(m.Duration.Seconds())
	})
}

func (h *Handler) logAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, label := withRouteLabel(r)
		m := httpsnoop.CaptureMetrics(next, w, r)

		h.logger.Info("request",
			"method", r.Method,
			"route", label.String(),
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
		)
	})
}
