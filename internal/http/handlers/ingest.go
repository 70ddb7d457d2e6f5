package handlers

import (
	"net/http"
	"path/filepath"

	"courier_platform/internal/http/middleware"
	"courier_platform/internal/ingest"
	"courier_platform/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// IngestCSV accepts a multipart partner CSV export and runs the ingestion
// batch synchronously, returning the summary report.
func (h *Handler) IngestCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot open file"})
		return
	}
	defer file.Close()

	rows, parseErrors, err := ingest.ParseRows(file)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Orchestrator.IngestCSV(c.Request.Context(), rows, filepath.Base(fileHeader.Filename))
	if err != nil {
		logger.Error("ingestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed", "report": report})
		return
	}

	middleware.IngestRows.WithLabelValues("processed").Add(float64(report.Processed))
	middleware.IngestRows.WithLabelValues("skipped").Add(float64(report.Skipped))
	middleware.IngestRows.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	middleware.IngestRows.WithLabelValues("unmatched").Add(float64(len(report.Unmatched)))
	middleware.IngestRows.WithLabelValues("error").Add(float64(len(report.Errors)))

	c.JSON(http.StatusOK, gin.H{"report": report, "parse_errors": parseErrors})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IngestProgressWS upgrades the connection and streams batch progress events.
func (h *Handler) IngestProgressWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	h.ProgressHub.Register(conn)
}
