package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"registrar/internal/models"
	"registrar/internal/services"
)

// RegistrationHandler для бэк-офиса: заявки, ссылки доступа, статусы.
type RegistrationHandler struct {
	Registrations *services.RegistrationService
	Access        *services.AccessTokenService
	Log           *logrus.Logger
}

func NewRegistrationHandler(registrations *services.RegistrationService, access *services.AccessTokenService, log *logrus.Logger) *RegistrationHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RegistrationHandler{Registrations: registrations, Access: access, Log: log}
}

// @Summary      Создать заявку
// @Tags         Registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateRegistrationRequest  true  "Данные заявки"
// @Success      201   {object}  models.Registration
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req models.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, err := h.Registrations.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		internalError(c, h.Log, "[registration][create] failed", err, "failed to create registration")
		return
	}
	userID, _ := getUserAndRole(c)
	h.Log.WithFields(logrus.Fields{"registration_id": reg.ID, "user_id": userID}).Info("[registration][create] ok")
	c.JSON(http.StatusCreated, reg)
}

// @Summary      Получить заявку
// @Tags         Registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID заявки"
// @Success      200  {object}  models.StaffRegistrationView
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/registrations/{id} [get]
func (h *RegistrationHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	view, err := h.Registrations.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRegistrationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
			return
		}
		internalError(c, h.Log, "[registration][get] failed", err, "failed to fetch registration")
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Выпустить ссылку доступа
// @Description  Новый accessToken (initial на 7 дней, reminder на 24 часа). Сбрасывает код и сессию.
// @Tags         Registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                       true   "ID заявки"
// @Param        body  body      models.AccessLinkRequest  false  "Назначение ссылки"
// @Success      201   {object}  models.AccessLink
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/registrations/{id}/access-link [post]
func (h *RegistrationHandler) IssueAccessLink(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req models.AccessLinkRequest
	// тело необязательно
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	link, err := h.Access.IssueLink(c.Request.Context(), id, req.Purpose, req.SendEmail)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	case err != nil:
		internalError(c, h.Log, "[registration][access-link] failed", err, "failed to issue access link")
		return
	}
	c.JSON(http.StatusCreated, link)
}

// @Summary      Сменить статус заявки
// @Tags         Registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                         true  "ID заявки"
// @Param        body  body      models.StatusUpdateRequest  true  "Новый статус"
// @Success      200   {object}  models.Registration
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/registrations/{id}/status [post]
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.Registrations.UpdateStatus(c.Request.Context(), id, req.Status)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	case errors.Is(err, services.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "status transition not allowed"})
		return
	case err != nil:
		internalError(c, h.Log, "[registration][status] failed", err, "failed to update status")
		return
	}
	c.JSON(http.StatusOK, reg)
}
