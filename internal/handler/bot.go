package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/chatbot"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"

	"github.com/gin-gonic/gin"
)

type BotHandler struct {
	responder *chatbot.Responder
	secret    string
}

func NewBotHandler(responder *chatbot.Responder, secret string) *BotHandler {
	return &BotHandler{responder: responder, secret: secret}
}

// Webhook receives messages from the messaging gateway. Requests must carry
// the shared secret in X-Bot-Secret.
func (h *BotHandler) Webhook(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Bot-Secret")), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, apierror.New("Webhook no autorizado"))
		return
	}

	var req dto.BotMensajeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	respuesta, err := h.responder.Responder(c.Request.Context(), req.ChatID, req.Mensaje)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BotRespuesta{Respuesta: respuesta})
}
