package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/handlers"
	"sports_club_backend/internal/middleware"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/internal/services"
)

// Options carries the collaborators the routes are built from.
type Options struct {
	ClubRepo     repositories.ClubRepository
	Workbooks    *repositories.WorkbookPool
	Auth         services.AuthService
	DefaultStore services.DefaultStore
	LockTimeout  time.Duration
	Clock        services.Clock // nil uses the system clock
	Metrics      bool
}

// Setup initializes the routing for the application and returns the action
// dispatcher it registered.
func Setup(engine *gin.Engine, opts Options) *handlers.Dispatcher {
	// Initialize Services
	gate := services.NewWriteGate(opts.LockTimeout)
	settingService := services.NewSettingService(gate, opts.Clock)
	memberService := services.NewMemberService(gate, settingService, opts.Clock)
	attendanceService := services.NewAttendanceService(gate, settingService)
	paymentService := services.NewPaymentService(gate, settingService, opts.Clock)
	expenseService := services.NewExpenseService(gate, settingService, opts.Clock)
	sportService := services.NewSportService(gate, settingService)
	clubService := services.NewClubService(opts.ClubRepo, opts.Workbooks, opts.DefaultStore, gate)
	dashboardService := services.NewDashboardService(opts.Clock)

	// Initialize Handlers
	dispatcher := handlers.NewDispatcher()
	handlers.NewMemberHandler(memberService).Register(dispatcher)
	handlers.NewAttendanceHandler(attendanceService).Register(dispatcher)
	handlers.NewPaymentHandler(paymentService).Register(dispatcher)
	handlers.NewExpenseHandler(expenseService).Register(dispatcher)
	handlers.NewSportHandler(sportService).Register(dispatcher)
	handlers.NewSettingHandler(settingService).Register(dispatcher)
	handlers.NewClubHandler(clubService, dashboardService).Register(dispatcher)

	gateMiddleware := middleware.AuthGate(dispatcher, opts.Auth, clubService, settingService)

	SetupHealthRoutes(engine)
	if opts.Metrics {
		SetupMetricsRoutes(engine)
	}
	SetupExecRoutes(engine.Group("/api/v1"), gateMiddleware, dispatcher)
	return dispatcher
}
