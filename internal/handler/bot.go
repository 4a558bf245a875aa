package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"botcraft/internal/config"
	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/domain/services"
	"botcraft/internal/httputil"
)

// BotHandler handles the owner's bot management requests
type BotHandler struct {
	bots    services.BotService
	queries services.QueryService
	logger  *slog.Logger
}

// NewBotHandler creates a new bot handler
func NewBotHandler(bots services.BotService, queries services.QueryService, logger *slog.Logger) *BotHandler {
	return &BotHandler{
		bots:    bots,
		queries: queries,
		logger:  logger,
	}
}

type createBotJSON struct {
	BotName string `json:"botName"`
	URL     string `json:"url"`
}

type createdBot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createBotResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Bot     createdBot `json:"bot"`
	APIKey  string     `json:"apiKey"`
}

// CreateBot builds a bot from an uploaded PDF or a URL
// POST /api/bots
// Accepts multipart (botName, pdfFile | url) or JSON {botName, url}
func (h *BotHandler) CreateBot(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseCreateRequest(w, r)
	if err != nil {
		handleError(w, err)
		return
	}
	req.OwnerID = httputil.GetUserID(r)

	bot, err := h.bots.CreateBot(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, createBotResponse{
		Success: true,
		Message: "Bot created successfully!",
		Bot:     createdBot{ID: bot.ID, Name: bot.Name},
		APIKey:  bot.APIKey,
	})
}

func (h *BotHandler) parseCreateRequest(w http.ResponseWriter, r *http.Request) (*services.CreateBotRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body createBotJSON
		if err := httputil.ParseJSON(w, r, &body); err != nil {
			return nil, requestError(err, "Invalid request body")
		}
		return &services.CreateBotRequest{Name: body.BotName, URL: body.URL}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		return nil, requestError(err, "Failed to parse multipart form")
	}

	req := &services.CreateBotRequest{
		Name: r.FormValue("botName"),
		URL:  r.FormValue("url"),
	}

	file, header, err := r.FormFile("pdfFile")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return nil, requestError(err, "Failed to read uploaded file")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, requestError(err, "Failed to read uploaded file")
	}
	req.PDF = &services.SourceFile{Filename: header.Filename, Data: data}
	return req, nil
}

// requestError keeps a size violation distinguishable and reports everything
// else as a validation failure with msg.
func requestError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}

// ListBots lists the caller's bots
// GET /api/bots
func (h *BotHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.bots.ListBots(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	if bots == nil {
		bots = []models.Bot{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"bots":    bots,
	})
}

// GetBot returns one bot with stats, customization and sources
// GET /api/bots/{id}
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	details, err := h.bots.GetBot(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    details,
	})
}

// DeleteBot removes a bot and its knowledge base
// DELETE /api/bots/{id}
func (h *BotHandler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	bot, err := h.bots.DeleteBot(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Bot '%s' has been deleted.", bot.Name),
	})
}

type customizationRequest struct {
	PrimaryColor   httputil.OptionalString `json:"primaryColor"`
	HeaderText     httputil.OptionalString `json:"headerText"`
	InitialMessage httputil.OptionalString `json:"initialMessage"`
}

func (c customizationRequest) update() models.CustomizationUpdate {
	field := func(o httputil.OptionalString) models.CustomizationField {
		return models.CustomizationField{Present: o.Present, Value: o.Value}
	}
	return models.CustomizationUpdate{
		PrimaryColor:   field(c.PrimaryColor),
		HeaderText:     field(c.HeaderText),
		InitialMessage: field(c.InitialMessage),
	}
}

// UpdateCustomization changes the widget look. Absent fields are kept, null
// restores the default.
// PATCH /api/bots/{id}/customization
func (h *BotHandler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	var req customizationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bot, err := h.bots.UpdateCustomization(r.Context(), httputil.GetUserID(r), r.PathValue("id"), req.update())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Customization updated!",
		"data":    bot.Details(),
	})
}

// UpdateStatus switches a bot on or off
// PATCH /api/bots/{id}/status
func (h *BotHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.BotStatus `json:"status"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	bot, err := h.bots.UpdateStatus(r.Context(), httputil.GetUserID(r), r.PathValue("id"), req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Bot status updated to %s", bot.Status),
		"newStatus": bot.Status,
	})
}

// AskDemo lets the owner try a bot from the dashboard
// POST /api/bots/{id}/demo
func (h *BotHandler) AskDemo(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.queries.AskDemo(r.Context(), httputil.GetUserID(r), r.PathValue("id"), req.Question)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, answerResponse{Success: true, Answer: answer})
}
