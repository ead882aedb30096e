package credentialhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalrelay/internal/services/turncred"
)

type Handler struct {
	svc turncred.ICredentialService
}

func New(svc turncred.ICredentialService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/credentials", h.credentials)
	r.GET("/turn/credentials", h.credentials)
}

// @Summary		Issue TURN credentials
// @Description	Mints short-lived HMAC-SHA1 credentials for the TURN relay.
// @Tags			Credentials
// @Param			user_id	query		string	true	"Caller identity embedded in the username"	default(user123)
// @Success		200		{object}	IceServersResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/credentials [get]
func (h *Handler) credentials(ginCtx *gin.Context) {
	var q CredentialsQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	servers, err := h.svc.ICEServers(q.UserID)
	switch {
	case err == nil:
		ginCtx.JSON(http.StatusOK, IceServersResponse{IceServers: servers})
	case errors.Is(err, turncred.ErrInvalidUserID):
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		zap.L().Error("turncred.issue", zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
