package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/models"
)

// Общие проверки для всех реализаций; вызываются из unit- и integration-тестов.

func newDraft(token string) *models.Registration {
	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	return &models.Registration{
		OrganizationID:    1,
		FirstName:         "Jean",
		LastName:          "Dupont",
		Phone:             "+33612345678",
		Status:            models.RegistrationStatusDraft,
		AccessToken:       &token,
		AccessTokenExpiry: &expiry,
	}
}

func testRegistrationRepository(t *testing.T, repo RegistrationRepository) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		reg := newDraft("tok-create")
		reg.FormData = []byte(`{"a":1}`)
		require.NoError(t, repo.Create(ctx, reg))
		require.NotZero(t, reg.ID)

		got, err := repo.GetByID(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Jean", got.FirstName)
		assert.Equal(t, models.RegistrationStatusDraft, got.Status)
		assert.JSONEq(t, `{"a":1}`, string(got.FormData))
		require.NotNil(t, got.AccessTokenExpiry)
		assert.True(t, reg.AccessTokenExpiry.Equal(*got.AccessTokenExpiry))

		byToken, err := repo.GetByAccessToken(ctx, "tok-create")
		require.NoError(t, err)
		require.NotNil(t, byToken)
		assert.Equal(t, reg.ID, byToken.ID)
	})

	t.Run("missing rows", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 987654)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.GetByAccessToken(ctx, "no-such-token")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = repo.UpdateByID(ctx, 987654, func(*models.Registration) (bool, error) { return true, nil })
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.UpdateByAccessToken(ctx, "no-such-token", func(*models.Registration) (bool, error) { return true, nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update persists only when asked", func(t *testing.T) {
		reg := newDraft("tok-update")
		require.NoError(t, repo.Create(ctx, reg))

		_, err := repo.UpdateByAccessToken(ctx, "tok-update", func(r *models.Registration) (bool, error) {
			r.City = "Nantes"
			return false, nil
		})
		require.NoError(t, err)
		got, _ := repo.GetByID(ctx, reg.ID)
		assert.Empty(t, got.City)

		out, err := repo.UpdateByAccessToken(ctx, "tok-update", func(r *models.Registration) (bool, error) {
			r.City = "Nantes"
			r.VerificationAttempts = 3
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Nantes", out.City)
		got, _ = repo.GetByID(ctx, reg.ID)
		assert.Equal(t, "Nantes", got.City)
		assert.Equal(t, 3, got.VerificationAttempts)
	})

	t.Run("error rolls back", func(t *testing.T) {
		reg := newDraft("tok-rollback")
		require.NoError(t, repo.Create(ctx, reg))
		boom := errors.New("boom")

		_, err := repo.UpdateByID(ctx, reg.ID, func(r *models.Registration) (bool, error) {
			r.City = "Brest"
			return true, boom
		})
		assert.ErrorIs(t, err, boom)
		got, _ := repo.GetByID(ctx, reg.ID)
		assert.Empty(t, got.City)
	})

	t.Run("updates on one row are serialized", func(t *testing.T) {
		reg := newDraft("tok-serial")
		require.NoError(t, repo.Create(ctx, reg))

		const workers = 10
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.UpdateByID(ctx, reg.ID, func(r *models.Registration) (bool, error) {
					r.VerificationAttempts++
					return true, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, _ := repo.GetByID(ctx, reg.ID)
		assert.Equal(t, workers, got.VerificationAttempts)
	})
}

// seed возвращает id существующей заявки (для FK в Postgres).
func testSessionRepository(t *testing.T, repo PublicSessionRepository, seed func(t *testing.T) int64) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	session := func(id int64, hash string) *models.PublicSession {
		return &models.PublicSession{
			RegistrationID:    id,
			TokenHash:         hash,
			AccessTokenHash:   "access-hash",
			IssuedAt:          now,
			LastSeenAt:        now,
			ExpiresAt:         now.Add(30 * time.Minute),
			AbsoluteExpiresAt: now.Add(2 * time.Hour),
		}
	}

	t.Run("save get delete", func(t *testing.T) {
		id := seed(t)
		got, err := repo.GetByRegistrationID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, repo.Save(ctx, session(id, "h1")))
		got, err = repo.GetByRegistrationID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "h1", got.TokenHash)
		assert.Equal(t, "access-hash", got.AccessTokenHash)
		assert.True(t, now.Add(30*time.Minute).Equal(got.ExpiresAt))

		// одна сессия на заявку: повторный Save перезаписывает
		require.NoError(t, repo.Save(ctx, session(id, "h2")))
		got, _ = repo.GetByRegistrationID(ctx, id)
		assert.Equal(t, "h2", got.TokenHash)

		require.NoError(t, repo.Delete(ctx, id))
		got, err = repo.GetByRegistrationID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("touch only extends the matching session", func(t *testing.T) {
		id := seed(t)
		require.NoError(t, repo.Save(ctx, session(id, "h1")))

		later := now.Add(10 * time.Minute)
		require.NoError(t, repo.Touch(ctx, id, "stale", later, later.Add(30*time.Minute)))
		got, _ := repo.GetByRegistrationID(ctx, id)
		assert.True(t, now.Add(30*time.Minute).Equal(got.ExpiresAt))

		require.NoError(t, repo.Touch(ctx, id, "h1", later, later.Add(30*time.Minute)))
		got, _ = repo.GetByRegistrationID(ctx, id)
		assert.True(t, later.Equal(got.LastSeenAt))
		assert.True(t, later.Add(30*time.Minute).Equal(got.ExpiresAt))
	})

	t.Run("touch without session is a no-op", func(t *testing.T) {
		id := seed(t)
		require.NoError(t, repo.Touch(ctx, id, "h1", now, now.Add(time.Minute)))
		got, err := repo.GetByRegistrationID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
