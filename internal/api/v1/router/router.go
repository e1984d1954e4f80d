package router

import (
	"net/http"

	"coursecatalog/internal/api/v1/handler"
	"coursecatalog/internal/config"
	"coursecatalog/internal/middleware"
	"coursecatalog/internal/repository"
	"coursecatalog/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires services and handlers over store and returns the root handler.
func New(cfg *config.Config, store repository.Store, logger zerolog.Logger) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	guard := service.NewBulkGuard(cfg.BulkMaxItems)

	courseSvc := service.NewCourseService(store, logger)
	chapterSvc := service.NewChapterService(store, guard, logger)
	lessonSvc := service.NewLessonService(store, guard, logger)

	courseHandler := handler.NewCourseHandler(courseSvc, validate, logger)
	chapterHandler := handler.NewChapterHandler(chapterSvc, validate, logger)
	lessonHandler := handler.NewLessonHandler(lessonSvc, validate, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	mux, api := SetupHumaAPI(cfg, authMiddleware, logger)
	RegisterRoutes(api, courseHandler, chapterHandler, lessonHandler, logger)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
