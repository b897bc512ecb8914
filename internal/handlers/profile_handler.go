package handlers

import (
	"net/http"

	"github.com/iyunix/go-dualotp/internal/domain"
	"github.com/iyunix/go-dualotp/internal/dtos"
	"github.com/iyunix/go-dualotp/internal/middleware"
	"github.com/iyunix/go-dualotp/internal/repository/identity"
)

type ProfileHandler struct {
	identities identity.IdentityRepository
}

func NewProfileHandler(identities identity.IdentityRepository) *ProfileHandler {
	return &ProfileHandler{identities: identities}
}

// GetProfile handles GET /user/profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.NewError(domain.KindAuth, "unauthorized"))
		return
	}

	user, err := h.identities.FindByID(r.Context(), principal.IdentityID)
	if err != nil {
		writeError(w, domain.WrapError(domain.KindInternal, "failed to load profile", err))
		return
	}
	if user == nil {
		writeError(w, domain.NewError(domain.KindNotFound, "user not found"))
		return
	}
	writeSuccess(w, "profile", dtos.ToIdentityResponseDTO(user))
}
