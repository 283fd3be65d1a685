package handler

import (
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hcm-campaign-api/internal/adapter"
	"github.com/noah-isme/hcm-campaign-api/internal/dto"
	"github.com/noah-isme/hcm-campaign-api/internal/repository"
	appErrors "github.com/noah-isme/hcm-campaign-api/pkg/errors"
	"github.com/noah-isme/hcm-campaign-api/pkg/response"
)

// maxDocumentBytes caps uploaded questionnaire documents at 1 MiB.
const maxDocumentBytes = 1 << 20

// AIHandler serves question generation, document extraction and provider
// catalog endpoints.
type AIHandler struct {
	generator *adapter.AIQuestionGenerator
	templates *repository.TemplateRepository
	extractor *adapter.DocumentExtractor
	logger    *zap.Logger
}

// NewAIHandler constructs the handler.
func NewAIHandler(generator *adapter.AIQuestionGenerator, templates *repository.TemplateRepository, extractor *adapter.DocumentExtractor, logger *zap.Logger) *AIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIHandler{generator: generator, templates: templates, extractor: extractor, logger: logger}
}

// GenerateQuestions godoc
// @Summary Generate questions for a template
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.GenerateQuestionsRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Router /ai/generate-questions [post]
func (h *AIHandler) GenerateQuestions(c *gin.Context) {
	var req dto.GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID := tenantFromContext(c)
	if _, err := h.templates.FindAccessible(c.Request.Context(), tenantID, req.TemplateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.ErrTemplateNotFound)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to load template"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.templates.IncrementUsage(c.Request.Context(), req.TemplateID); err != nil {
		h.logger.Warn("template usage increment failed", zap.String("template_id", req.TemplateID), zap.Error(err))
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExtractDocument godoc
// @Summary Extract text from an uploaded questionnaire document
// @Tags AI
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document to extract"
// @Success 200 {object} response.Envelope
// @Router /ai/extract-document [post]
func (h *AIHandler) ExtractDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "document file is required"))
		return
	}
	if file.Size > maxDocumentBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document exceeds the 1 MiB limit"))
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot open uploaded document"))
		return
	}
	defer src.Close()
	content, err := io.ReadAll(io.LimitReader(src, maxDocumentBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read uploaded document"))
		return
	}
	text, err := h.extractor.Extract(c.Request.Context(), file.Filename, content)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "document could not be extracted"))
		return
	}
	response.JSON(c, http.StatusOK, dto.ExtractedDocument{
		Filename:  file.Filename,
		Text:      text,
		CharCount: len(text),
	}, nil)
}

// Providers godoc
// @Summary List question generation providers
// @Tags AI
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ai/providers [get]
func (h *AIHandler) Providers(c *gin.Context) {
	providers, err := h.generator.Providers(c.Request.Context(), false)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, providers, nil)
}

// RefreshProviders godoc
// @Summary Force-refresh the provider catalog
// @Tags AI
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ai/providers/refresh [post]
func (h *AIHandler) RefreshProviders(c *gin.Context) {
	providers, err := h.generator.Providers(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, providers, nil)
}
