package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/clearauth/token-service/application/port/inbound"
	"github.com/clearauth/token-service/application/port/outbound"
	"github.com/clearauth/token-service/domain/apperror"
	"github.com/clearauth/token-service/domain/entity"
	"github.com/clearauth/token-service/infrastructure/service/logger"
)

// Mock implementations

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserDirectory) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserDirectory) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByClientAndValue(ctx context.Context, clientID, value string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, clientID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Replace(ctx context.Context, clientID, oldValue string, next *entity.RefreshToken) error {
	args := m.Called(ctx, clientID, oldValue, next)
	return args.Error(0)
}

type MockTokenSigner struct {
	mock.Mock
}

func (m *MockTokenSigner) Mint(subjectID string, now time.Time) (outbound.SignedToken, error) {
	args := m.Called(subjectID, now)
	return args.Get(0).(outbound.SignedToken), args.Error(1)
}

func (m *MockTokenSigner) GenerateRefreshValue() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) VerifyPassword(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func testLogger() logger.Logger {
	return logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       "error",
		Format:      "json",
		ServiceName: "token-service-test",
	})
}

func newTestUseCase(
	dir *MockUserDirectory,
	repo *MockRefreshTokenRepository,
	sig *MockTokenSigner,
	pw *MockPasswordService,
) inbound.TokenUseCase {
	return NewTokenUseCase(dir, repo, sig, pw, testLogger())
}

func TestIssueByPassword_Success(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	user := &entity.User{
		ID:       "subject-123",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hashed-password",
	}

	mockDir.On("FindByUsername", ctx, "alice").Return(user, nil)
	mockPassword.On("VerifyPassword", "correct", "hashed-password").Return(true, nil)
	mockSigner.On("GenerateRefreshValue").Return("refresh-value-1", nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(token *entity.RefreshToken) bool {
		return token.ClientID == "app1" &&
			token.SubjectID == "subject-123" &&
			token.Value == "refresh-value-1" &&
			token.Type == entity.TokenTypeStandard &&
			token.ID != ""
	})).Return(nil)
	mockSigner.On("Mint", "subject-123", mock.AnythingOfType("time.Time")).
		Return(outbound.SignedToken{Token: "signed-jwt", ExpiresIn: 60}, nil)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "alice",
		Password: "correct",
	})

	assert.NoError(t, err)
	assert.Equal(t, "signed-jwt", res.AccessToken)
	assert.Equal(t, 60, res.ExpiresInSeconds)
	assert.Equal(t, "refresh-value-1", res.RefreshToken)
	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestIssueByPassword_WrongPassword(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	user := &entity.User{ID: "subject-123", Username: "alice", Password: "hashed-password"}

	mockDir.On("FindByUsername", ctx, "alice").Return(user, nil)
	mockPassword.On("VerifyPassword", "wrong", "hashed-password").Return(false, nil)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "alice",
		Password: "wrong",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIssueByPassword_EmailFallback(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	user := &entity.User{ID: "subject-456", Email: "bob@example.com", Password: "hashed-password"}

	mockDir.On("FindByUsername", ctx, "bob@example.com").Return(nil, outbound.ErrUserNotFound)
	mockDir.On("FindByEmail", ctx, "bob@example.com").Return(user, nil)
	mockPassword.On("VerifyPassword", "correct", "hashed-password").Return(true, nil)
	mockSigner.On("GenerateRefreshValue").Return("refresh-value-2", nil)
	mockRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockSigner.On("Mint", "subject-456", mock.AnythingOfType("time.Time")).
		Return(outbound.SignedToken{Token: "signed-jwt", ExpiresIn: 60}, nil)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "bob@example.com",
		Password: "correct",
	})

	assert.NoError(t, err)
	assert.Equal(t, "refresh-value-2", res.RefreshToken)
	mockDir.AssertCalled(t, "FindByEmail", ctx, "bob@example.com")
}

func TestIssueByPassword_NoEmailFallbackWithoutAtSign(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	mockDir.On("FindByUsername", ctx, "bob").Return(nil, outbound.ErrUserNotFound)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "bob",
		Password: "whatever",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	mockDir.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestIssueByPassword_MissingCredentials(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	for _, req := range []inbound.PasswordGrantRequest{
		{ClientID: "app1", Username: "", Password: "pw"},
		{ClientID: "app1", Username: "alice", Password: ""},
	} {
		res, err := uc.IssueByPassword(ctx, req)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	}
	mockDir.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestIssueByPassword_StoreFailureIsOpaque(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	user := &entity.User{ID: "subject-123", Username: "alice", Password: "hashed-password"}

	mockDir.On("FindByUsername", ctx, "alice").Return(user, nil)
	mockPassword.On("VerifyPassword", "correct", "hashed-password").Return(true, nil)
	mockSigner.On("GenerateRefreshValue").Return("refresh-value-3", nil)
	mockRepo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "alice",
		Password: "correct",
	})

	// Infra failures must be indistinguishable from bad credentials.
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
}

func TestIssueByPassword_DirectoryFailureIsOpaque(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	mockDir.On("FindByUsername", ctx, "alice").Return(nil, errors.New("directory timeout"))

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.IssueByPassword(ctx, inbound.PasswordGrantRequest{
		ClientID: "app1",
		Username: "alice",
		Password: "correct",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
}

func TestRotate_Success(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	row := entity.NewRefreshToken("row-1", "app1", "subject-123", "old-value")
	user := &entity.User{ID: "subject-123", Username: "alice"}

	mockRepo.On("FindByClientAndValue", ctx, "app1", "old-value").Return(row, nil)
	mockDir.On("FindByID", ctx, "subject-123").Return(user, nil)
	mockSigner.On("GenerateRefreshValue").Return("new-value", nil)
	mockRepo.On("Replace", ctx, "app1", "old-value", mock.MatchedBy(func(next *entity.RefreshToken) bool {
		return next.ClientID == "app1" &&
			next.SubjectID == "subject-123" &&
			next.Value == "new-value"
	})).Return(nil)
	mockSigner.On("Mint", "subject-123", mock.AnythingOfType("time.Time")).
		Return(outbound.SignedToken{Token: "signed-jwt", ExpiresIn: 60}, nil)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.Rotate(ctx, inbound.RefreshGrantRequest{
		ClientID:     "app1",
		RefreshToken: "old-value",
	})

	assert.NoError(t, err)
	assert.Equal(t, "new-value", res.RefreshToken)
	assert.Equal(t, "signed-jwt", res.AccessToken)
}

func TestRotate_UnknownToken(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	mockRepo.On("FindByClientAndValue", ctx, "app1", "never-issued").
		Return(nil, outbound.ErrRefreshTokenNotFound)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.Rotate(ctx, inbound.RefreshGrantRequest{
		ClientID:     "app1",
		RefreshToken: "never-issued",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	mockRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRotate_SubjectNoLongerExists(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	row := entity.NewRefreshToken("row-1", "app1", "gone-subject", "old-value")

	mockRepo.On("FindByClientAndValue", ctx, "app1", "old-value").Return(row, nil)
	mockDir.On("FindByID", ctx, "gone-subject").Return(nil, outbound.ErrUserNotFound)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.Rotate(ctx, inbound.RefreshGrantRequest{
		ClientID:     "app1",
		RefreshToken: "old-value",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	mockRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRotate_ConflictLoserGetsAuthFailure(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	row := entity.NewRefreshToken("row-1", "app1", "subject-123", "old-value")
	user := &entity.User{ID: "subject-123"}

	mockRepo.On("FindByClientAndValue", ctx, "app1", "old-value").Return(row, nil)
	mockDir.On("FindByID", ctx, "subject-123").Return(user, nil)
	mockSigner.On("GenerateRefreshValue").Return("new-value", nil)
	// Another rotation consumed the row between lookup and replace.
	mockRepo.On("Replace", ctx, "app1", "old-value", mock.Anything).
		Return(outbound.ErrRefreshTokenNotFound)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	res, err := uc.Rotate(ctx, inbound.RefreshGrantRequest{
		ClientID:     "app1",
		RefreshToken: "old-value",
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	mockSigner.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything)
}

func TestRotate_MissingFields(t *testing.T) {
	ctx := context.Background()

	mockDir := new(MockUserDirectory)
	mockRepo := new(MockRefreshTokenRepository)
	mockSigner := new(MockTokenSigner)
	mockPassword := new(MockPasswordService)

	uc := newTestUseCase(mockDir, mockRepo, mockSigner, mockPassword)

	for _, req := range []inbound.RefreshGrantRequest{
		{ClientID: "", RefreshToken: "v"},
		{ClientID: "app1", RefreshToken: ""},
	} {
		res, err := uc.Rotate(ctx, req)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, apperror.ErrAuthenticationFailed)
	}
	mockRepo.AssertNotCalled(t, "FindByClientAndValue", mock.Anything, mock.Anything, mock.Anything)
}
