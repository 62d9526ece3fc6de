package handler

import (
	"net/http"

	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/http/middleware"
	"github.com/arw/arw-api/infrastructure/http/response"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me returns the authenticated principal.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		response.AppError(w, r, apperror.ErrUnauthenticated())
		return
	}
	response.Success(w, http.StatusOK, "success", principal)
}
