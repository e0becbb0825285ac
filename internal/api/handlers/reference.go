package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/dto"
	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// ReferenceHandler manages assets, categories and their mappings.
// Changes are picked up by the next analyzed payload.
type ReferenceHandler struct {
	*Base
}

// NewReferenceHandler creates a new reference data handler.
func NewReferenceHandler(repo storage.Repository, base *Base) *ReferenceHandler {
	if base == nil {
		base = NewBase(repo, nil)
	}
	return &ReferenceHandler{Base: base}
}

// ListAssets handles GET /api/assets.
func (h *ReferenceHandler) ListAssets(c *gin.Context) {
	assets, err := h.repo.ListAssets(c.Request.Context())
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, gin.H{"assets": nonNil(assets)})
}

// CreateAsset handles POST /api/assets.
func (h *ReferenceHandler) CreateAsset(c *gin.Context) {
	var req dto.AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	asset := &bill.AssetRecord{Name: req.Name}
	if err := h.repo.SaveAsset(c.Request.Context(), asset); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, asset)
}

// DeleteAsset handles DELETE /api/assets/:id.
func (h *ReferenceHandler) DeleteAsset(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteAsset(c.Request.Context(), id); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAssetMappings handles GET /api/asset-mappings.
func (h *ReferenceHandler) ListAssetMappings(c *gin.Context) {
	mappings, err := h.repo.ListAssetMappings(c.Request.Context())
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, gin.H{"mappings": nonNil(mappings)})
}

// SaveAssetMapping handles PUT /api/asset-mappings. Filling in the target of
// a placeholder row is the usual use.
func (h *ReferenceHandler) SaveAssetMapping(c *gin.Context) {
	var req dto.AssetMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	mapping := &bill.AssetMapping{Name: req.Name, MapName: req.MapName, Regex: req.Regex}
	if err := h.repo.SaveAssetMapping(c.Request.Context(), mapping); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, mapping)
}

// DeleteAssetMapping handles DELETE /api/asset-mappings/:id.
func (h *ReferenceHandler) DeleteAssetMapping(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteAssetMapping(c.Request.Context(), id); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, gin.H{"categories": nonNil(categories)})
}

// CreateCategory handles POST /api/categories.
func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	typ, err := bill.ParseType(req.Type)
	if err != nil || (typ != bill.TypeIncome && typ != bill.TypeExpend) {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError("category type must be Income or Expend"))
		return
	}

	category := &bill.CategoryRecord{
		Name:     req.Name,
		Type:     typ,
		BookName: req.BookName,
		ParentID: req.ParentID,
	}
	if err := h.repo.SaveCategory(c.Request.Context(), category); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusCreated, category)
}

// ListCategoryMappings handles GET /api/category-mappings.
func (h *ReferenceHandler) ListCategoryMappings(c *gin.Context) {
	mappings, err := h.repo.ListCategoryMappings(c.Request.Context())
	if err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, gin.H{"mappings": nonNil(mappings)})
}

// SaveCategoryMapping handles PUT /api/category-mappings.
func (h *ReferenceHandler) SaveCategoryMapping(c *gin.Context) {
	var req dto.CategoryMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	mapping := &bill.CategoryMapping{ID: req.ID, Name: req.Name, MapName: req.MapName}
	if err := h.repo.SaveCategoryMapping(c.Request.Context(), mapping); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	h.WriteJSON(c, http.StatusOK, mapping)
}

// DeleteCategoryMapping handles DELETE /api/category-mappings/:id.
func (h *ReferenceHandler) DeleteCategoryMapping(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCategoryMapping(c.Request.Context(), id); err != nil {
		h.WriteServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
