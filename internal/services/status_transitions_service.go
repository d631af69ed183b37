package services

import "registrar/internal/models"

// Допустимые переходы статусов заявки.
// validated / rejected: финальные; из submitted можно вернуть в draft на доработку.
var RegistrationTransitions = map[models.RegistrationStatus]map[models.RegistrationStatus]bool{
	models.RegistrationStatusDraft:     {models.RegistrationStatusSubmitted: true},
	models.RegistrationStatusSubmitted: {models.RegistrationStatusValidated: true, models.RegistrationStatusRejected: true, models.RegistrationStatusDraft: true},
	models.RegistrationStatusValidated: {},
	models.RegistrationStatusRejected:  {},
}

func canTransition(current, to models.RegistrationStatus, table map[models.RegistrationStatus]map[models.RegistrationStatus]bool) bool {
	if current == "" {
		// пустой статус считаем черновиком
		current = models.RegistrationStatusDraft
	}
	nexts, ok := table[current]
	if !ok {
		return false
	}
	return nexts[to]
}
