package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"filevault/internal/http/middleware"
	"filevault/internal/logging"
	"filevault/internal/service"
)

// PurgeReporter logs objects a purge could not remove from storage and counts them.
// The metadata of those files is already gone, so operators need these lines for cleanup.
type PurgeReporter struct {
	logger  *logging.Logger
	metrics *middleware.PrometheusMiddleware
}

// NewPurgeReporter creates a PurgeReporter. Both arguments may be nil.
func NewPurgeReporter(logger *logging.Logger, metrics *middleware.PrometheusMiddleware) *PurgeReporter {
	return &PurgeReporter{logger: logger, metrics: metrics}
}

// Report records every storage failure in report.
func (r *PurgeReporter) Report(c *fiber.Ctx, ownerID string, report *service.PurgeReport) {
	if r == nil || report == nil || len(report.StorageFailures) == 0 {
		return
	}
	for _, f := range report.StorageFailures {
		r.logger.Error("storage_cleanup_failed", f.Err, map[string]any{
			"event":       "storage_cleanup_failed",
			"request_id":  middleware.RequestIDFromCtx(c),
			"owner_id":    ownerID,
			"file_id":     f.FileID,
			"storage_key": f.StorageKey,
		})
	}
	r.metrics.AddOrphanedObjects(len(report.StorageFailures))
}

// ownerOrUnauthorized returns the authenticated owner id, writing a 401 when there is none.
func ownerOrUnauthorized(c *fiber.Ctx) (string, bool) {
	owner := middleware.OwnerID(c)
	if owner == "" {
		_ = writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return owner, true
}

// fileIDParam validates the :id path parameter, writing a 400 when it is not a UUID.
func fileIDParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return "", false
	}
	return id, true
}

// ListFiles godoc
// @Summary List active files
// @Tags files
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.File
// @Failure 401 {object} errorPayload
// @Router /files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return listHandler(svc, false)
}

// ListTrash godoc
// @Summary List trashed files
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.File
// @Failure 401 {object} errorPayload
// @Router /files/trash [get]
func ListTrash(svc service.FileService) fiber.Handler {
	return listHandler(svc, true)
}

func listHandler(svc service.FileService, deleted bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		items, err := svc.List(c.UserContext(), owner, deleted)
		if err != nil {
			return writeServiceError(c, err)
		}
		if items == nil {
			// Always render an array
			return c.JSON([]any{})
		}
		return c.JSON(items)
	}
}

// UploadFile godoc
// @Summary Upload a file
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 201 {object} model.File
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files [post]
func UploadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if fh.Size == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is empty")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		file, err := svc.Upload(c.UserContext(), owner, f, fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(file)
	}
}

// GetFile godoc
// @Summary Get a file's metadata
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} model.File
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /files/{id} [get]
func GetFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		file, err := svc.Get(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(file)
	}
}

// UpdateFile godoc
// @Summary Update a file's name, thumbnail or trash state
// @Tags files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Param body body service.FileUpdate true "Fields to change"
// @Success 200 {object} model.File
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /files/{id} [patch]
func UpdateFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}

		var upd service.FileUpdate
		if err := c.BodyParser(&upd); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		file, err := svc.Update(c.UserContext(), owner, id, upd)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(file)
	}
}

// SoftDeleteFile godoc
// @Summary Move a file to trash
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} model.File
// @Failure 404 {object} errorPayload
// @Router /files/{id} [delete]
func SoftDeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		file, err := svc.SoftDelete(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(file)
	}
}

// RestoreFile godoc
// @Summary Restore a file from trash
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} model.File
// @Failure 404 {object} errorPayload
// @Router /files/{id}/restore [patch]
func RestoreFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		file, err := svc.Restore(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(file)
	}
}

// PreviewFile godoc
// @Summary Get a signed preview URL for an image or PDF
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/{id}/preview [get]
func PreviewFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		url, err := svc.PreviewURL(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// DownloadFile godoc
// @Summary Download a file as an attachment
// @Tags files
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /files/{id}/download [get]
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		content, err := svc.Download(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Attachment(content.Filename)
		c.Set(fiber.HeaderContentType, content.ContentType)
		return c.Send(content.Data)
	}
}

// PermanentDeleteFile godoc
// @Summary Permanently delete a file
// @Description Removes the stored object best-effort and the metadata unconditionally
// @Tags trash
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /files/{id}/permanent [delete]
func PermanentDeleteFile(svc service.FileService, purges *PurgeReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		id, ok := fileIDParam(c)
		if !ok {
			return nil
		}
		report, err := svc.PermanentlyDelete(c.UserContext(), owner, id)
		purges.Report(c, owner, report)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// EmptyTrash godoc
// @Summary Permanently delete every trashed file
// @Tags trash
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 500 {object} errorPayload
// @Router /files/trash [delete]
func EmptyTrash(svc service.FileService, purges *PurgeReporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerOrUnauthorized(c)
		if !ok {
			return nil
		}
		report, err := svc.EmptyTrash(c.UserContext(), owner)
		purges.Report(c, owner, report)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"count":   report.Purged,
			"message": fmt.Sprintf("%d files permanently deleted", report.Purged),
		})
	}
}
