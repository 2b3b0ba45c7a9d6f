package auth

import (
	"context"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/presensia/attendance-backend-go/internal/domain/auth"
	"github.com/presensia/attendance-backend-go/internal/domain/employee"
	"github.com/presensia/attendance-backend-go/internal/pkg/jwt"
)

const testSecret = "test-secret-key-for-jwt"

type fakeEmployeeRepo struct {
	byCode map[string]employee.Employee
}

func (r *fakeEmployeeRepo) GetByCode(ctx context.Context, code string) (employee.Employee, error) {
	emp, ok := r.byCode[code]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *fakeEmployeeRepo) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	for _, emp := range r.byCode {
		if emp.ID == id {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func testService(t *testing.T) (auth.AuthService, jwt.Service) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeEmployeeRepo{byCode: map[string]employee.Employee{
		"2024-0001": {
			ID:           "emp-1",
			Code:         "2024-0001",
			FullName:     "Jane Staff",
			Email:        "jane@example.com",
			PasswordHash: string(hash),
			IsAdmin:      false,
		},
	}}

	jwtService := jwt.NewJWTService(testSecret, "1h")
	return NewAuthService(repo, jwtService), jwtService
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := testService(t)

	resp, err := svc.Login(context.Background(), auth.LoginRequest{
		EmployeeCode: "2024-0001",
		Password:     "password123",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "emp-1", resp.EmployeeID)
	assert.Equal(t, "Jane Staff", resp.FullName)
	assert.False(t, resp.IsAdmin)
	assert.Greater(t, resp.AccessTokenExpiresAt, int64(0))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		EmployeeCode: "2024-0001",
		Password:     "wrong",
	})

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownCode(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		EmployeeCode: "2024-9999",
		Password:     "password123",
	})

	// Unknown code reads the same as a wrong password.
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSSEToken(t *testing.T) {
	svc, jwtService := testService(t)

	token, _, err := jwtService.JWTAuth().Encode(map[string]interface{}{
		"employee_id": "emp-1",
		"type":        "access",
	})
	require.NoError(t, err)

	ctx := jwtauth.NewContext(context.Background(), token, nil)

	resp, err := svc.SSEToken(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 300, resp.ExpiresIn)

	employeeID, err := jwtService.ValidateSSEToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", employeeID)
}

func TestSSETokenWithoutClaims(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.SSEToken(context.Background())
	assert.Error(t, err)
}
