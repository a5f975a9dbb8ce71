package handler

import (
	"net/http"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type EstadiasHandler struct{ svc service.EstadiaService }

func NewEstadiasHandler(svc service.EstadiaService) *EstadiasHandler {
	return &EstadiasHandler{svc: svc}
}

// Ingreso godoc
// @Summary Registra el ingreso de un vehiculo
// @Tags estadias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.IngresoVehiculoRequest true "Datos del vehiculo"
// @Success 201 {object} dto.EstadiaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/estadias/ingreso [post]
func (h *EstadiasHandler) Ingreso(c *gin.Context) {
	var req dto.IngresoVehiculoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Ingreso(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Egreso godoc
// @Summary Registra el egreso de un vehiculo y cobra la estadia
// @Tags estadias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.EgresoVehiculoRequest true "Datos del egreso"
// @Success 200 {object} dto.EgresoVehiculoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/estadias/egreso [post]
func (h *EstadiasHandler) Egreso(c *gin.Context) {
	var req dto.EgresoVehiculoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Egreso(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EnCurso lists vehicles currently inside.
func (h *EstadiasHandler) EnCurso(c *gin.Context) {
	resp, err := h.svc.EnCurso(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PorPatente looks up the in-progress stay for a plate.
func (h *EstadiasHandler) PorPatente(c *gin.Context) {
	resp, err := h.svc.ConsultarPorPatente(c.Request.Context(), c.Param("patente"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Tarifas lists the configured hourly rates.
func (h *EstadiasHandler) Tarifas(c *gin.Context) {
	resp, err := h.svc.Tarifas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GuardarTarifa godoc
// @Summary Crea o actualiza la tarifa por hora de un tipo de vehiculo
// @Tags estadias
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TarifaRequest true "Tarifa"
// @Success 200 {object} dto.TarifaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/tarifas [put]
func (h *EstadiasHandler) GuardarTarifa(c *gin.Context) {
	var req dto.TarifaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GuardarTarifa(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
