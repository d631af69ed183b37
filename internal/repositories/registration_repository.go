package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"registrar/internal/models"
)

var ErrNotFound = errors.New("not found")

// MutateFunc меняет заявку внутри критической секции. save=false: ничего не писать.
// Ошибка откатывает всю операцию.
type MutateFunc func(reg *models.Registration) (save bool, err error)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id int64) (*models.Registration, error)
	GetByAccessToken(ctx context.Context, token string) (*models.Registration, error)

	// UpdateByID / UpdateByAccessToken сериализуют read-modify-write по строке заявки.
	UpdateByID(ctx context.Context, id int64, fn MutateFunc) (*models.Registration, error)
	UpdateByAccessToken(ctx context.Context, token string, fn MutateFunc) (*models.Registration, error)
}

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{DB: db}
}

const registrationCols = `
	id, organization_id, form_template_id, first_name, last_name, email, phone,
	address_line, postal_code, city, country, form_data, status,
	access_token, access_token_expiry, verification_code, verification_code_expiry,
	verification_attempts, phone_verified, email_verified, created_at, updated_at`

func scanRegistration(scanner interface{ Scan(...any) error }) (*models.Registration, error) {
	var (
		reg          models.Registration
		templateID   sql.NullInt64
		formData     []byte
		status       string
		accessToken  sql.NullString
		accessExpiry sql.NullTime
		code         sql.NullString
		codeExpiry   sql.NullTime
	)
	err := scanner.Scan(
		&reg.ID, &reg.OrganizationID, &templateID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone,
		&reg.AddressLine, &reg.PostalCode, &reg.City, &reg.Country, &formData, &status,
		&accessToken, &accessExpiry, &code, &codeExpiry,
		&reg.VerificationAttempts, &reg.PhoneVerified, &reg.EmailVerified, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = models.RegistrationStatus(status)
	if templateID.Valid {
		v := templateID.Int64
		reg.FormTemplateID = &v
	}
	if len(formData) > 0 {
		reg.FormData = json.RawMessage(formData)
	}
	if accessToken.Valid {
		v := accessToken.String
		reg.AccessToken = &v
	}
	if accessExpiry.Valid {
		v := accessExpiry.Time.UTC()
		reg.AccessTokenExpiry = &v
	}
	if code.Valid {
		v := code.String
		reg.VerificationCode = &v
	}
	if codeExpiry.Valid {
		v := codeExpiry.Time.UTC()
		reg.VerificationCodeExpiry = &v
	}
	return &reg, nil
}

// jsonb нельзя передавать как []byte: lib/pq отправит bytea.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *registrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `
		INSERT INTO registrations (
			organization_id, form_template_id, first_name, last_name, email, phone,
			address_line, postal_code, city, country, form_data, status,
			access_token, access_token_expiry, verification_code, verification_code_expiry,
			verification_attempts, phone_verified, email_verified, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id
	`
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = now
	if err := r.DB.QueryRowContext(ctx, q,
		reg.OrganizationID, reg.FormTemplateID, reg.FirstName, reg.LastName, reg.Email, reg.Phone,
		reg.AddressLine, reg.PostalCode, reg.City, reg.Country, nullableJSON(reg.FormData), string(reg.Status),
		reg.AccessToken, reg.AccessTokenExpiry, reg.VerificationCode, reg.VerificationCodeExpiry,
		reg.VerificationAttempts, reg.PhoneVerified, reg.EmailVerified, reg.CreatedAt, reg.UpdatedAt,
	).Scan(&reg.ID); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+registrationCols+` FROM registrations WHERE id = $1`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *registrationRepository) GetByAccessToken(ctx context.Context, token string) (*models.Registration, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+registrationCols+` FROM registrations WHERE access_token = $1`, token)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration by access token: %w", err)
	}
	return reg, nil
}

func (r *registrationRepository) UpdateByID(ctx context.Context, id int64, fn MutateFunc) (*models.Registration, error) {
	return r.updateLocked(ctx, `SELECT `+registrationCols+` FROM registrations WHERE id = $1 FOR UPDATE`, id, fn)
}

func (r *registrationRepository) UpdateByAccessToken(ctx context.Context, token string, fn MutateFunc) (*models.Registration, error) {
	return r.updateLocked(ctx, `SELECT `+registrationCols+` FROM registrations WHERE access_token = $1 FOR UPDATE`, token, fn)
}

// updateLocked: BEGIN; SELECT ... FOR UPDATE; fn; UPDATE; COMMIT.
// Параллельные запросы по одной заявке ждут блокировку строки.
func (r *registrationRepository) updateLocked(ctx context.Context, query string, arg any, fn MutateFunc) (*models.Registration, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reg, err := scanRegistration(tx.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}

	save, err := fn(reg)
	if err != nil {
		return nil, err
	}
	if save {
		reg.UpdatedAt = time.Now().UTC()
		if err := updateRegistration(ctx, tx, reg); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration update: %w", err)
	}
	return reg, nil
}

func updateRegistration(ctx context.Context, tx *sql.Tx, reg *models.Registration) error {
	const q = `
		UPDATE registrations
		SET organization_id = $1, form_template_id = $2, first_name = $3, last_name = $4,
			email = $5, phone = $6, address_line = $7, postal_code = $8, city = $9, country = $10,
			form_data = $11, status = $12, access_token = $13, access_token_expiry = $14,
			verification_code = $15, verification_code_expiry = $16, verification_attempts = $17,
			phone_verified = $18, email_verified = $19, updated_at = $20
		WHERE id = $21
	`
	if _, err := tx.ExecContext(ctx, q,
		reg.OrganizationID, reg.FormTemplateID, reg.FirstName, reg.LastName,
		reg.Email, reg.Phone, reg.AddressLine, reg.PostalCode, reg.City, reg.Country,
		nullableJSON(reg.FormData), string(reg.Status), reg.AccessToken, reg.AccessTokenExpiry,
		reg.VerificationCode, reg.VerificationCodeExpiry, reg.VerificationAttempts,
		reg.PhoneVerified, reg.EmailVerified, reg.UpdatedAt,
		reg.ID,
	); err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}
