package router

import (
	"net/http"

	"coursecatalog/internal/api/v1/handler"
	"coursecatalog/internal/config"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// publicPaths are served without a bearer token.
var publicPaths = map[string]bool{
	"/openapi.json": true,
	"/openapi.yaml": true,
	"/docs":         true,
	"/schemas":      true,
	"/metrics":      true,
}

// SetupHumaAPI creates a Huma API instance
func SetupHumaAPI(cfg *config.Config, authMiddleware func(http.Handler) http.Handler, logger zerolog.Logger) (*chi.Mux, huma.API) {
	chiRouter := chi.NewRouter()

	chiRouter.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			authMiddleware(next).ServeHTTP(w, r)
		})
	})

	humaConfig := huma.DefaultConfig("Course Catalog API v1", cfg.Version)
	humaConfig.Info.Description = "Course, chapter and lesson ordering and lifecycle"
	humaConfig.Servers = []*huma.Server{{URL: cfg.APIBaseURL}}

	api := humachi.New(chiRouter, humaConfig)

	chiRouter.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("version", cfg.Version).Msg("Huma API initialized")
	return chiRouter, api
}

// RegisterRoutes registers all Huma operations
func RegisterRoutes(
	api huma.API,
	courseHandler *handler.CourseHandler,
	chapterHandler *handler.ChapterHandler,
	lessonHandler *handler.LessonHandler,
	logger zerolog.Logger,
) {
	logger.Info().Msg("Registering routes")

	// ========== COURSE OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID:   "createCourse",
		Method:        http.MethodPost,
		Path:          "/courses",
		Summary:       "Create a course",
		Description:   "Creates a draft course instructed by the authenticated user",
		Tags:          []string{"courses"},
		DefaultStatus: http.StatusCreated,
	}, courseHandler.CreateCourse)

	huma.Register(api, huma.Operation{
		OperationID: "getCourse",
		Method:      http.MethodGet,
		Path:        "/courses/{courseId}",
		Summary:     "Get a course",
		Tags:        []string{"courses"},
	}, courseHandler.GetCourse)

	huma.Register(api, huma.Operation{
		OperationID: "updateCourse",
		Method:      http.MethodPatch,
		Path:        "/courses/{courseId}",
		Summary:     "Update a course",
		Description: "Updates title, description or status. Archiving a course freezes its content",
		Tags:        []string{"courses"},
	}, courseHandler.UpdateCourse)

	huma.Register(api, huma.Operation{
		OperationID: "listCourses",
		Method:      http.MethodGet,
		Path:        "/courses",
		Summary:     "List courses by status",
		Description: "Newest first. Non-admins see every published course and only their own in other statuses",
		Tags:        []string{"courses"},
	}, courseHandler.ListCoursesByStatus)

	huma.Register(api, huma.Operation{
		OperationID: "latestCourses",
		Method:      http.MethodGet,
		Path:        "/courses/latest",
		Summary:     "List the newest courses",
		Tags:        []string{"courses"},
	}, courseHandler.LatestCourses)

	huma.Register(api, huma.Operation{
		OperationID: "listInstructorCourses",
		Method:      http.MethodGet,
		Path:        "/instructors/{instructorId}/courses",
		Summary:     "List an instructor's courses",
		Tags:        []string{"courses"},
	}, courseHandler.ListInstructorCourses)

	// ========== CHAPTER OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listChapters",
		Method:      http.MethodGet,
		Path:        "/courses/{courseId}/chapters",
		Summary:     "List chapters of a course",
		Description: "Lists the active chapters visible to the caller in order",
		Tags:        []string{"chapters"},
	}, chapterHandler.ListChapters)

	huma.Register(api, huma.Operation{
		OperationID: "reorderChapters",
		Method:      http.MethodPut,
		Path:        "/courses/{courseId}/chapters/order",
		Summary:     "Reorder chapters",
		Description: "Renumbers the active chapters of a course. Chapters not listed keep their relative order after the listed ones",
		Tags:        []string{"chapters"},
	}, chapterHandler.ReorderChapters)

	huma.Register(api, huma.Operation{
		OperationID:   "createChapter",
		Method:        http.MethodPost,
		Path:          "/chapters",
		Summary:       "Create a chapter",
		Description:   "Creates a chapter, optionally with nested lessons",
		Tags:          []string{"chapters"},
		DefaultStatus: http.StatusCreated,
	}, chapterHandler.CreateChapter)

	huma.Register(api, huma.Operation{
		OperationID:   "bulkCreateChapters",
		Method:        http.MethodPost,
		Path:          "/chapters/bulk",
		Summary:       "Create chapters in bulk",
		Tags:          []string{"chapters"},
		DefaultStatus: http.StatusCreated,
	}, chapterHandler.BulkCreateChapters)

	huma.Register(api, huma.Operation{
		OperationID: "bulkUpdateChapters",
		Method:      http.MethodPatch,
		Path:        "/chapters/bulk",
		Summary:     "Update chapters in bulk",
		Description: "Applies updates[i] to ids[i]. Orders may be swapped within one request",
		Tags:        []string{"chapters"},
	}, chapterHandler.BulkUpdateChapters)

	huma.Register(api, huma.Operation{
		OperationID: "bulkDeleteChapters",
		Method:      http.MethodPost,
		Path:        "/chapters/bulk-delete",
		Summary:     "Delete chapters in bulk",
		Tags:        []string{"chapters"},
	}, chapterHandler.BulkDeleteChapters)

	huma.Register(api, huma.Operation{
		OperationID: "bulkRestoreChapters",
		Method:      http.MethodPost,
		Path:        "/chapters/bulk-restore",
		Summary:     "Restore chapters in bulk",
		Tags:        []string{"chapters"},
	}, chapterHandler.BulkRestoreChapters)

	huma.Register(api, huma.Operation{
		OperationID: "getChapter",
		Method:      http.MethodGet,
		Path:        "/chapters/{chapterId}",
		Summary:     "Get a chapter with its lessons",
		Tags:        []string{"chapters"},
	}, chapterHandler.GetChapter)

	huma.Register(api, huma.Operation{
		OperationID: "updateChapter",
		Method:      http.MethodPatch,
		Path:        "/chapters/{chapterId}",
		Summary:     "Update a chapter",
		Tags:        []string{"chapters"},
	}, chapterHandler.UpdateChapter)

	huma.Register(api, huma.Operation{
		OperationID: "deleteChapter",
		Method:      http.MethodDelete,
		Path:        "/chapters/{chapterId}",
		Summary:     "Delete a chapter",
		Description: "Archives the chapter and cascades to its active lessons",
		Tags:        []string{"chapters"},
	}, chapterHandler.DeleteChapter)

	huma.Register(api, huma.Operation{
		OperationID: "restoreChapter",
		Method:      http.MethodPost,
		Path:        "/chapters/{chapterId}/restore",
		Summary:     "Restore a chapter",
		Description: "Restores the chapter and the lessons archived with it",
		Tags:        []string{"chapters"},
	}, chapterHandler.RestoreChapter)

	// ========== LESSON OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listLessons",
		Method:      http.MethodGet,
		Path:        "/chapters/{chapterId}/lessons",
		Summary:     "List lessons of a chapter",
		Tags:        []string{"lessons"},
	}, lessonHandler.ListLessons)

	huma.Register(api, huma.Operation{
		OperationID: "reorderLessons",
		Method:      http.MethodPut,
		Path:        "/chapters/{chapterId}/lessons/order",
		Summary:     "Reorder lessons",
		Tags:        []string{"lessons"},
	}, lessonHandler.ReorderLessons)

	huma.Register(api, huma.Operation{
		OperationID:   "createLesson",
		Method:        http.MethodPost,
		Path:          "/lessons",
		Summary:       "Create a lesson",
		Tags:          []string{"lessons"},
		DefaultStatus: http.StatusCreated,
	}, lessonHandler.CreateLesson)

	huma.Register(api, huma.Operation{
		OperationID:   "bulkCreateLessons",
		Method:        http.MethodPost,
		Path:          "/lessons/bulk",
		Summary:       "Create lessons in bulk",
		Tags:          []string{"lessons"},
		DefaultStatus: http.StatusCreated,
	}, lessonHandler.BulkCreateLessons)

	huma.Register(api, huma.Operation{
		OperationID: "bulkUpdateLessons",
		Method:      http.MethodPatch,
		Path:        "/lessons/bulk",
		Summary:     "Update lessons in bulk",
		Tags:        []string{"lessons"},
	}, lessonHandler.BulkUpdateLessons)

	huma.Register(api, huma.Operation{
		OperationID: "bulkDeleteLessons",
		Method:      http.MethodPost,
		Path:        "/lessons/bulk-delete",
		Summary:     "Delete lessons in bulk",
		Tags:        []string{"lessons"},
	}, lessonHandler.BulkDeleteLessons)

	huma.Register(api, huma.Operation{
		OperationID: "bulkRestoreLessons",
		Method:      http.MethodPost,
		Path:        "/lessons/bulk-restore",
		Summary:     "Restore lessons in bulk",
		Tags:        []string{"lessons"},
	}, lessonHandler.BulkRestoreLessons)

	huma.Register(api, huma.Operation{
		OperationID: "getLesson",
		Method:      http.MethodGet,
		Path:        "/lessons/{lessonId}",
		Summary:     "Get a lesson",
		Tags:        []string{"lessons"},
	}, lessonHandler.GetLesson)

	huma.Register(api, huma.Operation{
		OperationID: "updateLesson",
		Method:      http.MethodPatch,
		Path:        "/lessons/{lessonId}",
		Summary:     "Update a lesson",
		Tags:        []string{"lessons"},
	}, lessonHandler.UpdateLesson)

	huma.Register(api, huma.Operation{
		OperationID: "deleteLesson",
		Method:      http.MethodDelete,
		Path:        "/lessons/{lessonId}",
		Summary:     "Delete a lesson",
		Tags:        []string{"lessons"},
	}, lessonHandler.DeleteLesson)

	huma.Register(api, huma.Operation{
		OperationID: "restoreLesson",
		Method:      http.MethodPost,
		Path:        "/lessons/{lessonId}/restore",
		Summary:     "Restore a lesson",
		Tags:        []string{"lessons"},
	}, lessonHandler.RestoreLesson)
}
