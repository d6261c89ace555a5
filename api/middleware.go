// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	correlationIDHeader = "X-Correlation-Id"
	callerAddressHeader = "X-Caller-Address"
)

type ctxKey int

const correlationIDKey ctxKey = iota

// correlationID echoes the request correlation ID or generates one
func (s *Server) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get(correlationIDHeader)
		if corrID == "" {
			corrID = uuid.NewString()
		}
		w.Header().Set(correlationIDHeader, corrID)
		ctx := context.WithValue(r.Context(), correlationIDKey, corrID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CorrelationID returns the request correlation ID stored in ctx
func CorrelationID(ctx context.Context) string {
	corrID, _ := ctx.Value(correlationIDKey).(string)
	return corrID
}

// instrument records a span and request metrics labelled with the matched
// route pattern
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(
			r.Context(),
			r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("correlation_id", CorrelationID(r.Context())),
			),
		)
		defer span.End()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if s.metrics != nil {
			s.metrics.requests.WithLabelValues(
				r.Method,
				route,
				strconv.Itoa(status),
			).Inc()
			s.metrics.duration.WithLabelValues(
				r.Method,
				route,
			).Observe(time.Since(start).Seconds())
		}
		s.logger.Debug(
			"request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"correlation_id", CorrelationID(r.Context()),
		)
	})
}
