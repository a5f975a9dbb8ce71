package handler

import (
	"net/http"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AbonosHandler struct{ svc service.AbonoService }

func NewAbonosHandler(svc service.AbonoService) *AbonosHandler {
	return &AbonosHandler{svc: svc}
}

// CrearCliente godoc
// @Summary Registra un nuevo cliente
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearClienteRequest true "Datos del cliente"
// @Success 201 {object} dto.ClienteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/clientes [post]
func (h *AbonosHandler) CrearCliente(c *gin.Context) {
	var req dto.CrearClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCliente(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarClientes lists registered customers.
func (h *AbonosHandler) ListarClientes(c *gin.Context) {
	resp, err := h.svc.ListarClientes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CrearAbono godoc
// @Summary Vende un abono mensual a un cliente
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearAbonoRequest true "Datos del abono"
// @Success 201 {object} dto.AbonoResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/abonos [post]
func (h *AbonosHandler) CrearAbono(c *gin.Context) {
	var req dto.CrearAbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CrearAbono(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RenovarAbono godoc
// @Summary Renueva un abono existente
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del abono"
// @Param body body dto.RenovarAbonoRequest true "Datos de renovacion"
// @Success 200 {object} dto.AbonoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/abonos/{id}/renovar [post]
func (h *AbonosHandler) RenovarAbono(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.RenovarAbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RenovarAbono(c.Request.Context(), usuarioID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PorPatente looks up the current abono for a plate.
func (h *AbonosHandler) PorPatente(c *gin.Context) {
	resp, err := h.svc.ConsultarPorPatente(c.Request.Context(), c.Param("patente"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
