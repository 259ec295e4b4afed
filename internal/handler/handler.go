package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/workshift-dev/shift-calendar/backend/internal/config"
	"github.com/workshift-dev/shift-calendar/backend/internal/repository"
	"github.com/workshift-dev/shift-calendar/backend/internal/scheduler"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	engine     *scheduler.Engine
	translator ut.Translator

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, engine *scheduler.Engine) (*Handler, error) {
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
		engine:     engine,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	// 所有班次变更的鉴权都在引擎内部完成，路由层不做角色判断
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.GetMyStores)
			r.Get("/{id}", h.GetStore)
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Post("/check-conflict", h.CheckConflict)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", h.EditShift)
				r.Delete("/", h.DeleteShift)
				r.Post("/move", h.MoveShift)
				r.Post("/approve", h.ApproveShift)
				r.Post("/reject", h.RejectShift)
			})
		})
	})
}
