package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/api/transport"
	"github.com/fastygo/greenbite/pkg/httpcontext"
	recipeUC "github.com/fastygo/greenbite/usecase/recipe"
)

type RecipeHandler struct {
	baseHandler
	uc *recipeUC.UseCase
}

func NewRecipeHandler(uc *recipeUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Recipe ideas for the given ingredients or the user's inventory
// @Tags recipes
// @Router /api/v1/recipes/suggest [post]
func (h *RecipeHandler) Suggest(ctx *fasthttp.RequestCtx) {
	identity, ok := h.identity(ctx)
	if !ok {
		return
	}
	var req transport.RecipeRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	recipes, err := h.uc.Suggest(stdCtx, identity, req.Ingredients)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, recipes)
}
