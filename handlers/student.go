package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/models"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
	"attendance_app_backend/store"
)

type StudentHandler struct {
	store     store.RosterStore
	catalog   *registry.Catalog
	importer  *roster.Importer
	mapping   roster.Mapping
	maxUpload int64
	logger    *slog.Logger
}

func NewStudentHandler(st store.RosterStore, catalog *registry.Catalog, importer *roster.Importer,
	mapping roster.Mapping, maxUploadBytes int64, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{
		store:     st,
		catalog:   catalog,
		importer:  importer,
		mapping:   mapping,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}
}

// GetStudents returns the roster in import order. With ?with_courses=true
// each student carries its course names.
func (h *StudentHandler) GetStudents(c *gin.Context) {
	students, err := h.store.Students(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if c.Query("with_courses") != "true" {
		c.JSON(http.StatusOK, students)
		return
	}

	reg := h.catalog.Current()
	resp := make([]models.StudentWithCoursesResponse, 0, len(students))
	for _, s := range students {
		resp = append(resp, models.StudentWithCoursesResponse{
			Student:             s,
			MorningCourseName:   reg.Name(s.MorningCourseID),
			AfternoonCourseName: reg.Name(s.AfternoonCourseID),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ImportStudents replaces the roster from an uploaded CSV, XLSX or XLS file.
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("File exceeds %d bytes", h.maxUpload),
				"code":  "file_too_large",
			})
			return
		}
		badRequest(c, "No file uploaded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	src, err := roster.OpenSource(file, fileHeader.Filename, h.mapping)
	if err != nil {
		h.logger.Warn("roster file rejected", "filename", fileHeader.Filename, "error", err)
		var missing *roster.MissingColumnError
		if errors.As(err, &missing) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": missing.Code()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "unreadable_file"})
		return
	}

	report, err := h.importer.Import(c.Request.Context(), src)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if report.Accepted == 0 {
		c.JSON(http.StatusUnprocessableEntity, report)
		return
	}
	c.JSON(http.StatusOK, report)
}
