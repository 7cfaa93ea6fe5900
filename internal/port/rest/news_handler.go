package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/middleware"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/rest/response"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	imageFormField     = "newsImage"
	multipartMemory    = 8 << 20
	multipartOverhead  = 1 << 20
	defaultMaxUpload   = 10 << 20
	maxJSONPayloadSize = 1 << 20
)

type NewsService interface {
	CreateNews(ctx context.Context, input usecase.CreateNewsInput) (*entity.News, error)
	ListActiveNews(ctx context.Context, caller entity.Identity) ([]*entity.News, error)
	DeleteNews(ctx context.Context, input usecase.DeleteNewsInput) error
	UpdateNews(ctx context.Context, input usecase.UpdateNewsInput) (*entity.News, error)
}

type NewsHandler struct {
	service       NewsService
	maxUploadSize int64
	logger        *zap.Logger
}

func NewNewsHandler(service NewsService, maxUploadSize int64, logger *zap.Logger) *NewsHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUpload
	}
	return &NewsHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		logger:        logger.Named("NewsHTTPHandler"),
	}
}

// badRequest is a malformed request detected before the use case runs.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (h *NewsHandler) HandleCreateNews(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !isMultipart(r) {
		response.Error(w, http.StatusBadRequest, "request must be multipart/form-data")
		return
	}

	fields, image, err := h.readMultipart(w, r)
	if err != nil {
		h.writeError(w, err, "create")
		return
	}

	news, err := h.service.CreateNews(r.Context(), usecase.CreateNewsInput{
		Fields: fields,
		Image:  image,
		Caller: caller,
	})
	if err != nil {
		h.writeError(w, err, "create")
		return
	}
	response.JSON(w, http.StatusCreated, "News created successfully!", news)
}

func (h *NewsHandler) HandleListActiveNews(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	list, err := h.service.ListActiveNews(r.Context(), caller)
	if err != nil {
		h.writeError(w, err, "list")
		return
	}
	response.JSON(w, http.StatusOK, "", list)
}

func (h *NewsHandler) HandleDeleteNews(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	err := h.service.DeleteNews(r.Context(), usecase.DeleteNewsInput{
		NewsID: chi.URLParam(r, "id"),
		Caller: caller,
	})
	if err != nil {
		h.writeError(w, err, "delete")
		return
	}
	response.JSON(w, http.StatusOK, "News deleted successfully!", struct{}{})
}

// HandleUpdateNews accepts either multipart/form-data (fields plus an
// optional newsImage file) or a JSON object of fields.
func (h *NewsHandler) HandleUpdateNews(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var (
		fields map[string]any
		image  *entity.ImageUpload
		err    error
	)
	if isMultipart(r) {
		fields, image, err = h.readMultipart(w, r)
	} else {
		fields, err = readJSONFields(w, r)
	}
	if err != nil {
		h.writeError(w, err, "update")
		return
	}

	news, err := h.service.UpdateNews(r.Context(), usecase.UpdateNewsInput{
		NewsID: chi.URLParam(r, "id"),
		Fields: fields,
		Image:  image,
		Caller: caller,
	})
	if err != nil {
		h.writeError(w, err, "update")
		return
	}
	response.JSON(w, http.StatusOK, "News updated successfully!", news)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readMultipart returns the form fields and the single newsImage file, if any.
func (h *NewsHandler) readMultipart(w http.ResponseWriter, r *http.Request) (map[string]any, *entity.ImageUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, badRequest{msg: "request body is too large"}
		}
		return nil, nil, badRequest{msg: "malformed multipart form"}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields := make(map[string]any, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) == 1 {
			fields[key] = values[0]
		} else {
			fields[key] = values
		}
	}

	files := r.MultipartForm.File[imageFormField]
	switch len(files) {
	case 0:
		return fields, nil, nil
	case 1:
	default:
		return nil, nil, badRequest{msg: "exactly one news image is allowed"}
	}

	upload, err := h.readImage(files[0])
	if err != nil {
		return nil, nil, err
	}
	return fields, &upload, nil
}

func (h *NewsHandler) readImage(fh *multipart.FileHeader) (entity.ImageUpload, error) {
	if fh.Size > h.maxUploadSize {
		return entity.ImageUpload{}, badRequest{msg: fmt.Sprintf("news image exceeds %d bytes", h.maxUploadSize)}
	}
	f, err := fh.Open()
	if err != nil {
		return entity.ImageUpload{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		return entity.ImageUpload{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	upload, err := entity.NewImageUpload(fh.Filename, data, h.maxUploadSize)
	if err != nil {
		return entity.ImageUpload{}, badRequest{msg: err.Error()}
	}
	return upload, nil
}

func readJSONFields(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONPayloadSize))
	if err != nil {
		return nil, badRequest{msg: "request body is too large"}
	}
	fields := map[string]any{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, badRequest{msg: "request body must be a JSON object"}
	}
	return fields, nil
}

func (h *NewsHandler) writeError(w http.ResponseWriter, err error, action string) {
	var (
		br   badRequest
		vErr *usecase.ValidationError
	)
	switch {
	case errors.As(err, &br):
		response.Error(w, http.StatusBadRequest, br.msg)
	case errors.As(err, &vErr):
		response.Error(w, http.StatusBadRequest, vErr.Reason)
	case errors.Is(err, usecase.ErrValidation):
		response.Error(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, usecase.ErrNotFound):
		response.Error(w, http.StatusNotFound, "News not found")
	case errors.Is(err, usecase.ErrForbidden):
		response.Error(w, http.StatusForbidden, fmt.Sprintf("You are not allowed to %s this news", action))
	default:
		h.logger.Error("News request failed", zap.String("action", action), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
