package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"registrar/internal/models"
	"registrar/internal/pdf"
	"registrar/internal/services"
)

const msgInternal = "Une erreur interne est survenue. Veuillez réessayer plus tard."

// PublicAccessHandler обслуживает публичный поток заявителя: без JWT, доступ по ссылке и sessionToken.
type PublicAccessHandler struct {
	Service *services.PublicAccessService
	PDF     pdf.Generator
	Clock   services.Clock
	Log     *logrus.Logger
}

func NewPublicAccessHandler(service *services.PublicAccessService, gen pdf.Generator, clock services.Clock, log *logrus.Logger) *PublicAccessHandler {
	if clock == nil {
		clock = services.RealClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PublicAccessHandler{Service: service, PDF: gen, Clock: clock, Log: log}
}

// @Summary      Demande d'un code SMS
// @Description  Génère un code de vérification et l'envoie par SMS au numéro du dossier
// @Tags         Public
// @Produce      json
// @Param        token  path      string  true  "Jeton du lien d'accès"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Failure      404    {object}  map[string]interface{}
// @Failure      500    {object}  map[string]string
// @Router       /api/public/registration-access/{token}/request-code [post]
func (h *PublicAccessHandler) RequestCode(c *gin.Context) {
	res, err := h.Service.RequestCode(c.Request.Context(), c.Param("token"))
	if err != nil {
		internalError(c, h.Log, "[public][request-code] failed", err, msgInternal)
		return
	}

	switch res.Outcome {
	case models.OutcomeOK:
		msg := "Un code de vérification a été envoyé par SMS."
		if !res.SMSDelivered {
			msg = "Le code a été généré mais l'envoi du SMS a échoué. Veuillez redemander un code."
		}
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"message":          msg,
			"phoneNumber":      res.PhoneMasked,
			"expiresInMinutes": res.ExpiresInMinutes,
			"smsDelivered":     res.SMSDelivered,
		})
	case models.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Lien d'accès invalide ou introuvable."})
	case models.OutcomeExpired:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Ce lien d'accès a expiré. Veuillez contacter l'établissement."})
	case models.OutcomeInvalid:
		c.JSON(http.StatusBadRequest, gin.H{
			"success":             false,
			"error":               "Aucun numéro de téléphone valide n'est associé à ce dossier.",
			"requiresPhoneUpdate": res.RequiresPhoneUpdate,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Demande invalide."})
	}
}

// @Summary      Vérification du code SMS
// @Tags         Public
// @Accept       json
// @Produce      json
// @Param        token  path      string                    true  "Jeton du lien d'accès"
// @Param        body   body      models.VerifyCodeRequest  true  "Code reçu par SMS"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]interface{}
// @Failure      404    {object}  map[string]interface{}
// @Failure      500    {object}  map[string]string
// @Router       /api/public/registration-access/{token}/verify-code [post]
func (h *PublicAccessHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Le code de vérification est requis."})
		return
	}

	res, err := h.Service.VerifyCode(c.Request.Context(), c.Param("token"), req.Code)
	if err != nil {
		internalError(c, h.Log, "[public][verify-code] failed", err, msgInternal)
		return
	}

	switch res.Outcome {
	case models.OutcomeOK:
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"message":          "Numéro de téléphone vérifié.",
			"registrationId":   res.RegistrationID,
			"sessionToken":     res.SessionToken,
			"sessionExpiresAt": res.SessionExpiresAt,
			"redirectUrl":      res.RedirectURL,
		})
	case models.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Lien d'accès invalide ou introuvable."})
	case models.OutcomeExpired:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Ce lien d'accès a expiré. Veuillez contacter l'établissement."})
	case models.OutcomeLockedOut:
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              "Nombre maximal de tentatives atteint. Veuillez demander un nouveau code.",
			"maxAttemptsReached": true,
		})
	case models.OutcomeWrongCode:
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              "Code de vérification incorrect.",
			"attemptsRemaining":  res.AttemptsRemaining,
			"maxAttemptsReached": res.AttemptsRemaining == 0,
		})
	case models.OutcomeCodeExpired:
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              "Le code de vérification a expiré. Veuillez demander un nouveau code.",
			"message":            "expired",
			"attemptsRemaining":  res.AttemptsRemaining,
			"maxAttemptsReached": res.AttemptsRemaining == 0,
		})
	case models.OutcomeInvalid:
		// RegistrationID == 0: формат кода; иначе активного кода нет, но попытка засчитана
		if res.RegistrationID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Le code doit contenir 6 chiffres."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success":           false,
			"error":             "Aucun code en attente. Veuillez demander un nouveau code.",
			"attemptsRemaining": res.AttemptsRemaining,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Demande invalide."})
	}
}

// recordRefused отвечает на неуспешные исходы чтения/обновления. true: ответ уже записан.
func recordRefused(c *gin.Context, res *models.RecordResult) bool {
	switch res.Outcome {
	case models.OutcomeOK:
		return false
	case models.OutcomeUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Session invalide ou expirée. Veuillez vérifier à nouveau votre numéro."})
	case models.OutcomeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Dossier introuvable."})
	case models.OutcomeExpired:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Ce lien d'accès a expiré. Veuillez contacter l'établissement."})
	case models.OutcomeNotEditable:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Ce dossier ne peut plus être modifié.", "editable": false})
	case models.OutcomeInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Données invalides.", "field": res.Reason})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Demande invalide."})
	}
	return true
}

// @Summary      Détails du dossier
// @Tags         Public
// @Produce      json
// @Param        id            path      int     true   "Identifiant du dossier"
// @Param        sessionToken  query     string  false  "Jeton de session (ou en-tête X-Session-Token)"
// @Success      200           {object}  models.PublicRegistrationDetails
// @Failure      400           {object}  map[string]interface{}
// @Failure      401           {object}  map[string]interface{}
// @Failure      404           {object}  map[string]interface{}
// @Router       /api/public/registration/{id}/details [get]
func (h *PublicAccessHandler) GetDetails(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Identifiant de dossier invalide."})
		return
	}
	res, err := h.Service.GetDetails(c.Request.Context(), id, sessionTokenFrom(c))
	if err != nil {
		internalError(c, h.Log, "[public][details] failed", err, msgInternal)
		return
	}
	if recordRefused(c, res) {
		return
	}
	c.JSON(http.StatusOK, res.Details)
}

// @Summary      Mise à jour du dossier
// @Tags         Public
// @Accept       json
// @Produce      json
// @Param        id            path      int                              true   "Identifiant du dossier"
// @Param        sessionToken  query     string                           false  "Jeton de session (ou en-tête X-Session-Token)"
// @Param        body          body      models.PublicRegistrationUpdate  true   "Champs modifiables"
// @Success      200           {object}  map[string]interface{}
// @Failure      400           {object}  map[string]interface{}
// @Failure      401           {object}  map[string]interface{}
// @Failure      404           {object}  map[string]interface{}
// @Router       /api/public/registration/{id} [put]
func (h *PublicAccessHandler) UpdateRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Identifiant de dossier invalide."})
		return
	}
	var upd models.PublicRegistrationUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Données invalides."})
		return
	}

	res, err := h.Service.UpdateRecord(c.Request.Context(), id, sessionTokenFrom(c), &upd)
	if err != nil {
		internalError(c, h.Log, "[public][update] failed", err, msgInternal)
		return
	}
	if recordRefused(c, res) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Votre dossier a été mis à jour.",
		"registrationId": res.Details.ID,
	})
}

// @Summary      Récapitulatif PDF du dossier
// @Tags         Public
// @Produce      application/pdf
// @Param        id            path      int     true   "Identifiant du dossier"
// @Param        sessionToken  query     string  false  "Jeton de session (ou en-tête X-Session-Token)"
// @Success      200           {file}    file
// @Failure      401           {object}  map[string]interface{}
// @Failure      404           {object}  map[string]interface{}
// @Router       /api/public/registration/{id}/summary.pdf [get]
func (h *PublicAccessHandler) SummaryPDF(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Identifiant de dossier invalide."})
		return
	}
	res, err := h.Service.GetDetails(c.Request.Context(), id, sessionTokenFrom(c))
	if err != nil {
		internalError(c, h.Log, "[public][summary] failed", err, msgInternal)
		return
	}
	if recordRefused(c, res) {
		return
	}

	body, err := h.PDF.RegistrationSummary(res.Registration, h.Clock.Now())
	if err != nil {
		internalError(c, h.Log, "[public][summary] render failed", err, msgInternal)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="dossier-%d.pdf"`, id))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", body)
}
