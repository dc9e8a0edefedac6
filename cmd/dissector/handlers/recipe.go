package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

// recipeResponse is the recipe detail payload. The content maps carry the
// applied-patch and source checksum sets the comparator matches on.
type recipeResponse struct {
	*models.Recipe
	AppliedPatches map[string]string `json:"applied_patches"`
	SourceURLs     map[string]string `json:"source_urls"`
}

// RecipeHandler exposes package records with their patches and sources
type RecipeHandler struct {
	recipes *repository.RecipeRepository
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipes *repository.RecipeRepository) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// Get returns one recipe with nested patch and source records
// GET /api/v1/recipes/:id
func (h *RecipeHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	recipe, err := h.recipes.GetByID(c.Request().Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, recipeResponse{
		Recipe:         recipe,
		AppliedPatches: recipe.AppliedPatchPaths(),
		SourceURLs:     recipe.SourcesByURL(),
	})
}
