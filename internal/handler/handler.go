package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/cache"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/queue"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/repository"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	publisher  *queue.Publisher
	progress   *cache.ProgressCache

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, publisher *queue.Publisher, progress *cache.ProgressCache) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		progress:   progress,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	schedulers := h.RequiredRole([]domain.Role{domain.RoleScheduler, domain.RoleAdmin})
	admins := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	userInfo := loadByID(h, UserInfoCtx, "用户", h.repository.GetUserByID)
	rosterInfo := loadByID(h, RosterCtx, "名单", h.repository.GetRosterByID)
	runInfo := loadByID(h, RunCtx, "任务", h.repository.GetRunByID)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Get("/runs", h.GetMyRuns)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(admins).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(userInfo)
				r.Get("/", h.GetUser)
				r.Get("/runs", h.GetUserRuns)
				r.With(h.preventOperateInitialAdmin).With(admins).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(admins).Delete("/", h.DeleteUser)
			})
		})

		r.Route("/rosters", func(r chi.Router) {
			r.With(schedulers).With(h.myInfo).Post("/", h.CreateRoster)
			r.With(schedulers).With(h.myInfo).Post("/upload", h.UploadRoster)
			r.Get("/", h.GetAllRosters)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(rosterInfo)
				r.Get("/", h.GetRoster)
				r.Get("/records", h.GetRosterRecords)
				r.With(schedulers).Patch("/", h.UpdateRoster)
				r.With(schedulers).Delete("/", h.DeleteRoster)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.With(schedulers).With(h.myInfo).Post("/", h.CreateRun)
			r.Get("/", h.GetAllRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(runInfo)
				r.Get("/", h.GetRun)
				r.Get("/progress", h.GetRunProgress)
				r.Route("/result", func(r chi.Router) {
					r.Get("/", h.GetRunResult)
					r.Get("/assignments.csv", h.DownloadAssignments)
					r.Get("/analysis.csv", h.DownloadCourseAnalysis)
				})
				r.Get("/units/{unitID}", h.GetUnitSchedule)
				r.Get("/buckets/{room}/{period}", h.GetBucketRoster)
				r.With(schedulers).Delete("/", h.DeleteRun)
			})
		})
	})
}
