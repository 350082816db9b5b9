package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusRecorder captures the response status and, once authenticated,
// the principal of the request for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status    int
	principal *models.Principal
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Handler wraps the router with panic recovery and access logging.
func (a *API) Handler(next http.Handler) http.Handler {
	return a.accessLog(a.recovery(next))
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
		}
		if p := rec.principal; p != nil {
			fields = append(fields,
				zap.String("user_id", p.UserID.String()),
				zap.String("role", string(p.Role)),
			)
			if p.CompanyID != nil {
				fields = append(fields, zap.String("company_id", p.CompanyID.String()))
			}
		}
		a.logger.Info("HTTP request", fields...)
	})
}

func (a *API) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				stack := debug.Stack()
				a.logger.Error("Panic while serving request",
					zap.Any("panic", v),
					zap.ByteString("stack", stack),
					zap.String("path", r.URL.Path),
				)
				body := errorResponse{Kind: kindInternal, Message: "internal server error"}
				if a.development {
					body.Detail = fmt.Sprint(v)
					body.Stack = string(stack)
				}
				a.writeJSON(w, http.StatusInternalServerError, body)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// UnaryLoggingInterceptor logs gRPC calls and turns panics into
// codes.Internal.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	logger = logger.Named("grpc")
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()
		defer func() {
			if v := recover(); v != nil {
				logger.Error("Panic in gRPC handler",
					zap.Any("panic", v),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal error")
			}
			logger.Debug("gRPC call",
				zap.String("method", info.FullMethod),
				zap.String("code", status.Code(err).String()),
				zap.Duration("latency", time.Since(start)),
			)
		}()
		return handler(ctx, req)
	}
}
