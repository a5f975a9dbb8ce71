package dto

type BotMensajeRequest struct {
	ChatID  string `json:"chat_id" validate:"required,min=1,max=64"`
	Mensaje string `json:"mensaje" validate:"required,min=1,max=500"`
}

type BotRespuesta struct {
	Respuesta string `json:"respuesta"`
}
