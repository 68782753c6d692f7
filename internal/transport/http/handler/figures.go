package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"thucydides/internal/app"
	"thucydides/internal/pkg/pdfextract"
	"thucydides/internal/transport/http/response"
)

// maxUploadBytes caps the optional context file on the search endpoint. It
// matches the ceiling the PDF extractor enforces on its own input.
const maxUploadBytes = pdfextract.MaxInputBytes

type FigureHandler struct {
	figureService *app.FigureService
}

func NewFigureHandler(figureService *app.FigureService) *FigureHandler {
	return &FigureHandler{figureService: figureService}
}

func (h *FigureHandler) Featured(c *gin.Context) {
	figures, err := h.figureService.ListFeatured()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list featured figures failed")
		return
	}
	response.OK(c, figures)
}

func (h *FigureHandler) Archive(c *gin.Context) {
	figures, err := h.figureService.ListArchive()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list figures failed")
		return
	}
	response.OK(c, figures)
}

func (h *FigureHandler) Detail(c *gin.Context) {
	figureID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || figureID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid figure id")
		return
	}

	figure, err := h.figureService.GetByID(uint(figureID64))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrFigureNotFound):
			response.Error(c, http.StatusNotFound, response.CodeFigureNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get figure failed")
		}
		return
	}
	response.OK(c, figure)
}

// Search runs the figure-matching stream. The request is multipart so an
// optional context file can ride along with the query; the reply is SSE with
// one JSON event per data frame, ending with a done event.
func (h *FigureHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query is required")
		return
	}
	allowExternal := c.PostForm("allow_external_knowledge") == "true"

	fileContext, err := h.readFileContext(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	wroteFrame := false
	streamErr := h.figureService.SearchStream(c.Request.Context(), app.SearchInput{
		Query:         query,
		FileContext:   fileContext,
		AllowExternal: allowExternal,
	}, func(ev app.StreamEvent) error {
		frame, marshalErr := json.Marshal(ev)
		if marshalErr != nil {
			return marshalErr
		}
		if _, writeErr := c.Writer.Write([]byte("data: " + string(frame) + "\n\n")); writeErr != nil {
			return writeErr
		}
		wroteFrame = true
		flusher.Flush()
		return nil
	})
	if streamErr != nil && !wroteFrame {
		// Failed before the first frame, so a plain error response is still
		// possible.
		switch {
		case errors.Is(streamErr, app.ErrQueryEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, streamErr.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "figure search failed")
		}
	}
}

// readFileContext extracts UTF-8 text from an optional uploaded file. PDFs go
// through text extraction; anything else is treated as plain text.
func (h *FigureHandler) readFileContext(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		// Absent file is fine, the query stands alone.
		return "", nil
	}
	if fileHeader.Size > maxUploadBytes {
		return "", errors.New("context file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", errors.New("open context file failed")
	}
	defer file.Close()

	if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		text, extractErr := pdfextract.ExtractText(file)
		if extractErr != nil {
			if errors.Is(extractErr, pdfextract.ErrNotPDF) {
				return "", errors.New("context file is not a valid pdf")
			}
			return "", errors.New("extract pdf text failed")
		}
		return text, nil
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", errors.New("read context file failed")
	}
	return string(raw), nil
}
