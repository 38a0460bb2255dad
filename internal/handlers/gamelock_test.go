package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/dimitrije/family-core/internal/testutil"
	"github.com/dimitrije/family-core/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupGameLockTest(t *testing.T) (*testutil.MockGameLockService, *testutil.MockFamilyService, http.Handler) {
	t.Helper()
	mockLockService := new(testutil.MockGameLockService)
	mockFamilyService := new(testutil.MockFamilyService)
	handler := NewGameLockHandler(mockLockService, mockFamilyService)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(testutil.TestJWTService()))
	app.Get("/families/:familyId/locks", handler.ListActive)
	app.Post("/families/:familyId/games/:gameId/lock", handler.Lock)
	app.Delete("/families/:familyId/games/:gameId/lock", handler.Unlock)
	app.Delete("/families/:familyId/games/:gameId/lock/force", handler.ForceUnlock)

	return mockLockService, mockFamilyService, app
}

func lockPath(familyID uuid.UUID, gameID string) string {
	return fmt.Sprintf("/families/%s/games/%s/lock", familyID, gameID)
}

func TestGameLockHandler_Lock_Acquired(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()
	expiresAt := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(true, nil)
	mockLockService.On("Lock", mock.Anything, familyID, "chess", userID).
		Return(models.LockResult{OK: true, LockedBy: userID, ExpiresAt: expiresAt}, nil)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Post(lockPath(familyID, "chess"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.LockGameResponse
	testutil.ParseJSON(t, rec, &response)
	assert.True(t, response.OK)
	assert.Nil(t, response.LockedBy)
	assert.True(t, expiresAt.Equal(response.ExpiresAt))

	mockLockService.AssertExpectations(t)
}

func TestGameLockHandler_Lock_ConflictNamesHolder(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userB := uuid.New()
	holder := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, userB).Return(true, nil)
	mockLockService.On("Lock", mock.Anything, familyID, "chess", userB).
		Return(models.LockResult{OK: false, LockedBy: holder, ExpiresAt: time.Now().Add(time.Minute)}, nil)

	client := testutil.NewHTTPTestClient(t, app, userB, "b@example.com")
	rec := client.Post(lockPath(familyID, "chess"), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var response dto.LockGameResponse
	testutil.ParseJSON(t, rec, &response)
	assert.False(t, response.OK)
	require.NotNil(t, response.LockedBy)
	assert.Equal(t, holder, *response.LockedBy)
}

func TestGameLockHandler_Lock_ContendedIsConflict(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(true, nil)
	mockLockService.On("Lock", mock.Anything, familyID, "chess", userID).
		Return(models.LockResult{}, services.ErrGameLockContended)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Post(lockPath(familyID, "chess"), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var response dto.MessageResponse
	testutil.ParseJSON(t, rec, &response)
	assert.Equal(t, services.ErrGameLockContended.Error(), response.Message)
}

func TestGameLockHandler_Lock_NotMember(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(false, nil)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Post(lockPath(familyID, "chess"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mockLockService.AssertNotCalled(t, "Lock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGameLockHandler_Unlock(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(true, nil)
	mockLockService.On("Unlock", mock.Anything, familyID, "chess", userID).Return(nil)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Delete(lockPath(familyID, "chess"))

	assert.Equal(t, http.StatusOK, rec.Code)
	mockLockService.AssertExpectations(t)
}

func TestGameLockHandler_ForceUnlock_NotOwner(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(true, nil)
	mockLockService.On("ForceUnlock", mock.Anything, familyID, "chess", userID).Return(services.ErrNotFamilyOwner)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Delete(lockPath(familyID, "chess") + "/force")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGameLockHandler_ForceUnlock_ByOwner(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	ownerID := uuid.New()
	familyID := uuid.New()

	mockFamilyService.On("IsMember", mock.Anything, familyID, ownerID).Return(true, nil)
	mockLockService.On("ForceUnlock", mock.Anything, familyID, "chess", ownerID).Return(nil)

	client := testutil.NewHTTPTestClient(t, app, ownerID, "owner@example.com")
	rec := client.Delete(lockPath(familyID, "chess") + "/force")

	assert.Equal(t, http.StatusOK, rec.Code)
	mockLockService.AssertExpectations(t)
}

func TestGameLockHandler_ListActive(t *testing.T) {
	mockLockService, mockFamilyService, app := setupGameLockTest(t)
	userID := uuid.New()
	familyID := uuid.New()
	now := time.Now().UTC()
	locks := []models.GameLock{
		{FamilyID: familyID, GameID: "chess", LockedBy: userID, ExpiresAt: now.Add(time.Minute), LockedAt: now},
	}

	mockFamilyService.On("IsMember", mock.Anything, familyID, userID).Return(true, nil)
	mockLockService.On("ListActive", mock.Anything, familyID).Return(locks, nil)

	client := testutil.NewHTTPTestClient(t, app, userID, "a@example.com")
	rec := client.Get(fmt.Sprintf("/families/%s/locks", familyID))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []dto.GameLockResponse
	testutil.ParseJSON(t, rec, &response)
	require.Len(t, response, 1)
	assert.Equal(t, "chess", response[0].GameID)
	assert.Equal(t, userID, response[0].LockedBy)
}
