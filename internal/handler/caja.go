package handler

import (
	"net/http"
	"strconv"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/dto"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarPago godoc
// @Summary Registra un pago en la sesion de caja abierta
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PagoCajaRequest true "Datos del pago"
// @Success 201 {object} dto.PagoCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/pago [post]
func (h *CajaHandler) RegistrarPago(c *gin.Context) {
	var req dto.PagoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarPago(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Estado godoc
// @Summary Estado de la sesion de caja del usuario autenticado
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.EstadoCajaResponse
// @Router /v1/caja/estado [get]
func (h *CajaHandler) Estado(c *gin.Context) {
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Estado(c.Request.Context(), usuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion de caja con arqueo
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Declaracion de cierre"
// @Success 200 {object} dto.CierreCajaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := currentUserID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Arqueo godoc
// @Summary Obtiene el arqueo registrado para una sesion cerrada
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/arqueo [get]
func (h *CajaHandler) Arqueo(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Arqueo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of closed cash sessions.
func (h *CajaHandler) Historial(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	resp, total, err := h.svc.Historial(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "total": total, "page": page, "limit": limit})
}
