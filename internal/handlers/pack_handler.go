package handlers

import (
	"context"
	"errors"
	"html"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"packshop/internal/interfaces"
	"packshop/internal/models"
	"packshop/internal/repository"
	"packshop/internal/services"
)

const maxUploadMemory = 32 << 20

type PackHandler struct {
	repo     interfaces.PackRepository
	images   services.ImageStore
	sanitize *bluemonday.Policy
	v        *validator.Validate
	log      *zap.Logger
	errs     errorResponder
}

// NewPackHandler builds the catalog handler. images may be nil when no
// bucket is configured; uploads then answer 503.
func NewPackHandler(repo interfaces.PackRepository, images services.ImageStore, log *zap.Logger, verboseErrors bool) *PackHandler {
	return &PackHandler{
		repo:     repo,
		images:   images,
		sanitize: bluemonday.StrictPolicy(),
		v:        newValidator(),
		log:      log,
		errs:     errorResponder{log: log, verbose: verboseErrors},
	}
}

// @Tags Packs
// @Summary List packs
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {object} models.PackListResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/packs [get]
func (h *PackHandler) ListPacks(w http.ResponseWriter, r *http.Request) {
	filter := interfaces.PackFilter{}
	if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
		filter.Category = models.PackCategory(c)
		if !filter.Category.Valid() {
			writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_category", "Unknown category")
			return
		}
	}

	packs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, models.PackListResponse{Count: len(packs), Packs: packs}, "")
}

// @Tags Packs
// @Summary Get pack
// @Produce json
// @Param id path string true "Pack ID"
// @Success 200 {object} models.Pack
// @Failure 404 {object} map[string]interface{}
// @Router /api/packs/{id} [get]
func (h *PackHandler) GetPack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.packID(w, r)
	if !ok {
		return
	}

	pack, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, pack, "")
}

// @Tags Packs
// @Summary Create pack
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreatePackRequest true "Pack"
// @Success 201 {object} models.Pack
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/packs [post]
func (h *PackHandler) CreatePack(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = h.clean(req.Name)
	req.Description = h.clean(req.Description)
	req.Features = h.cleanAll(req.Features)
	if !validateRequest(w, h.v, &req) {
		return
	}

	pack := &models.Pack{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Images:      pq.StringArray(req.Images),
		Features:    pq.StringArray(req.Features),
	}
	if err := h.repo.Create(r.Context(), pack); err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.log.Info("Pack created", zap.String("pack_id", pack.ID))
	writeJSONData(w, http.StatusCreated, pack, "Pack created")
}

// @Tags Packs
// @Summary Update pack
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Pack ID"
// @Param body body models.UpdatePackRequest true "Fields to update"
// @Success 200 {object} models.Pack
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/packs/{id} [put]
func (h *PackHandler) UpdatePack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.packID(w, r)
	if !ok {
		return
	}

	var req models.UpdatePackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Empty() {
		writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", "No fields to update")
		return
	}

	if req.Name != nil {
		name := h.clean(*req.Name)
		req.Name = &name
	}
	if req.Description != nil {
		desc := h.clean(*req.Description)
		req.Description = &desc
	}
	if req.Features != nil {
		req.Features = h.cleanAll(req.Features)
	}
	if !validateRequest(w, h.v, &req) {
		return
	}

	pack, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.writeRepoError(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, pack, "Pack updated")
}

// @Tags Packs
// @Summary Delete pack
// @Security BearerAuth
// @Produce json
// @Param id path string true "Pack ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/packs/{id} [delete]
func (h *PackHandler) DeletePack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.packID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, r, err)
		return
	}
	h.log.Info("Pack deleted", zap.String("pack_id", id))
	writeJSONMessage(w, http.StatusOK, "Pack deleted")
}

// @Tags Packs
// @Summary Upload pack images
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Pack ID"
// @Param images formData file true "Image files"
// @Success 200 {object} models.Pack
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/packs/{id}/images [post]
func (h *PackHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeJSONErrorResponse(w, http.StatusServiceUnavailable, "uploads_disabled", "Image storage is not configured")
		return
	}
	id, ok := h.packID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", "No images uploaded")
		return
	}

	pack, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, r, err)
		return
	}
	if len(pack.Images)+len(files) > models.MaxPackImages {
		h.errs.write(w, r, services.ErrTooManyImages)
		return
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", "Only image files are accepted")
			return
		}
	}
	for _, fh := range files {
		url, err := h.upload(r, id, fh)
		if err != nil {
			h.log.Error("Failed to upload pack image", zap.String("pack_id", id), zap.String("file", fh.Filename), zap.Error(err))
			h.discardImages(r.Context(), id, urls)
			writeJSONErrorResponse(w, http.StatusBadGateway, "upload_failed", "Failed to upload images")
			return
		}
		urls = append(urls, url)
	}

	updated, err := h.repo.AppendImages(r.Context(), id, urls, models.MaxPackImages)
	if err != nil {
		// A concurrent upload may have filled the pack or it was deleted.
		h.discardImages(r.Context(), id, urls)
		h.writeRepoError(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, updated, "Images uploaded")
}

func (h *PackHandler) upload(r *http.Request, packID string, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()
	return h.images.Upload(r.Context(), packID, fh.Filename, fh.Header.Get("Content-Type"), file)
}

// discardImages removes objects that were stored but never attached to the
// pack. Failures are logged only.
func (h *PackHandler) discardImages(ctx context.Context, packID string, urls []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for _, url := range urls {
		if err := h.images.Delete(ctx, url); err != nil {
			h.log.Warn("Failed to delete unattached pack image", zap.String("pack_id", packID), zap.String("url", url), zap.Error(err))
		}
	}
}

func (h *PackHandler) packID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSONErrorResponse(w, http.StatusNotFound, "pack_not_found", "Pack not found")
		return "", false
	}
	return id, true
}

func (h *PackHandler) writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrPackNotFound):
		h.errs.write(w, r, services.ErrPackNotFound)
	case errors.Is(err, repository.ErrTooManyImages):
		h.errs.write(w, r, services.ErrTooManyImages)
	default:
		h.errs.write(w, r, err)
	}
}

// clean turns user input into plain text: markup is stripped and entities
// are decoded, so "d'anniversaire & fête" is stored as typed.
func (h *PackHandler) clean(s string) string {
	s = h.sanitize.Sanitize(html.UnescapeString(s))
	return strings.TrimSpace(html.UnescapeString(s))
}

// cleanAll drops entries that are empty once cleaned. The result is never
// nil so a list emptied by cleaning still fails the min length rule.
func (h *PackHandler) cleanAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := h.clean(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}
