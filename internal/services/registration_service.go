package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"registrar/internal/models"
	"registrar/internal/repositories"
	"registrar/internal/utils"
)

// RegistrationService: операции бэк-офиса над заявками.
type RegistrationService struct {
	repo   repositories.RegistrationRepository
	access *AccessTokenService
	log    *logrus.Logger
}

func NewRegistrationService(repo repositories.RegistrationRepository, access *AccessTokenService, log *logrus.Logger) *RegistrationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RegistrationService{repo: repo, access: access, log: log}
}

func (s *RegistrationService) Create(ctx context.Context, req *models.CreateRegistrationRequest) (*models.Registration, error) {
	reg := &models.Registration{
		OrganizationID: req.OrganizationID,
		FormTemplateID: req.FormTemplateID,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          strings.TrimSpace(req.Email),
		AddressLine:    req.AddressLine,
		PostalCode:     req.PostalCode,
		City:           req.City,
		Country:        req.Country,
		FormData:       req.FormData,
		Status:         models.RegistrationStatusDraft,
	}
	if reg.FirstName == "" || reg.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	// без телефона заявку создать можно, но request-code попросит его указать
	if p := strings.TrimSpace(req.Phone); p != "" {
		normalized, ok := utils.NormalizePhone(p)
		if !ok {
			return nil, fmt.Errorf("%w: phone", ErrInvalidInput)
		}
		reg.Phone = normalized
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, err
	}
	s.log.WithField("registration_id", reg.ID).Info("[registration] created")
	return reg, nil
}

func (s *RegistrationService) Get(ctx context.Context, id int64) (*models.StaffRegistrationView, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	view := &models.StaffRegistrationView{Registration: reg}
	if reg.AccessToken != nil && s.access != nil {
		view.AccessURL = s.access.AccessURL(*reg.AccessToken)
	}
	return view, nil
}

func (s *RegistrationService) UpdateStatus(ctx context.Context, id int64, to models.RegistrationStatus) (*models.Registration, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	var from models.RegistrationStatus
	reg, err := s.repo.UpdateByID(ctx, id, func(reg *models.Registration) (bool, error) {
		from = reg.Status
		if !canTransition(reg.Status, to, RegistrationTransitions) {
			return false, ErrInvalidStatusTransition
		}
		reg.Status = to
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"registration_id": id, "from": from, "to": to}).Info("[registration] status changed")
	return reg, nil
}
