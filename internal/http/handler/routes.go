package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"filevault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// auth guards every /files route; purges may be nil.
func RegisterRoutes(app *fiber.App, db *sql.DB, fileSvc service.FileService, auth fiber.Handler, purges *PurgeReporter) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	var guards []fiber.Handler
	if auth != nil {
		guards = append(guards, auth)
	}
	files := app.Group("/files", guards...)

	files.Get("/", ListFiles(fileSvc))
	files.Post("/", UploadFile(fileSvc))

	// Trash routes must precede /:id
	files.Get("/trash", ListTrash(fileSvc))
	files.Delete("/trash", EmptyTrash(fileSvc, purges))

	files.Get("/:id", GetFile(fileSvc))
	files.Patch("/:id", UpdateFile(fileSvc))
	files.Delete("/:id", SoftDeleteFile(fileSvc))
	files.Get("/:id/preview", PreviewFile(fileSvc))
	files.Get("/:id/download", DownloadFile(fileSvc))
	files.Patch("/:id/restore", RestoreFile(fileSvc))
	files.Delete("/:id/permanent", PermanentDeleteFile(fileSvc, purges))
}
