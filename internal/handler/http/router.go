package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	ServiceName    string
}

func NewRouter(
	opts RouterOptions,
	JWTService jwt.Service,
	attendanceHandler AttendanceHandler,
	syncHandler SyncHandler,
	reportHandler ReportHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", telemetry.CorrelationHeader},
		ExposedHeaders:   []string{"Content-Disposition", telemetry.CorrelationHeader},
		MaxAge:           300,
	}))

	r.Use(otelhttp.NewMiddleware(opts.ServiceName))
	r.Use(middleware.Correlation)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/attendance", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionAttendanceCreate)).
					Post("/manual", attendanceHandler.RecordMyManualAttendance)
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewOwn)).
					Get("/my", attendanceHandler.GetMyAttendance)

				r.Route("/employees/{employeeID}", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).
						Get("/", attendanceHandler.GetEmployeeAttendance)
					r.With(middleware.RequirePermission(user.PermissionAttendanceManage)).
						Post("/manual", attendanceHandler.RecordEmployeeManualAttendance)
				})

				r.With(middleware.RequirePermission(user.PermissionAttendanceSync)).
					Post("/sync", syncHandler.RunSync)
			})

			r.Route("/reports/attendance", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionReportsView)).
					Get("/", reportHandler.GetAttendanceReport)
				r.With(middleware.RequirePermission(user.PermissionReportsExport)).
					Get("/export", reportHandler.ExportAttendanceReport)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}
