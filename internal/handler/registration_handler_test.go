package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/registrar-api/internal/middleware"
	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/repository"
	"github.com/campushq/registrar-api/internal/service"
)

type ledgerMock struct {
	registerResp *models.Enrollment
	registerErr  error
	detailResp   *models.EnrollmentDetail
	dropCalled   bool
}

func (m *ledgerMock) Register(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.registerResp, nil
}

func (m *ledgerMock) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.registerResp != nil {
		return m.registerResp, nil
	}
	return nil, nil
}

func (m *ledgerMock) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return m.detailResp, nil
}

func (m *ledgerMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *ledgerMock) DropOwned(ctx context.Context, studentID, enrollmentID string) error {
	m.dropCalled = true
	return nil
}

func (m *ledgerMock) UpdateGrade(ctx context.Context, id, grade string) error {
	return nil
}

func (m *ledgerMock) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	return nil
}

func (m *ledgerMock) Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

type sectionReaderMock struct {
	section *models.Section
}

func (m *sectionReaderMock) FindByID(ctx context.Context, id string) (*models.Section, error) {
	return m.section, nil
}

func newRegistrationTestContext(t *testing.T, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextPrincipalKey, &models.JWTClaims{PrincipalID: "stu-1", Role: models.RoleStudent})
	return w, c
}

func TestRegistrationHandlerRegisterCreated(t *testing.T) {
	ledger := &ledgerMock{
		registerResp: &models.Enrollment{ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Grade: models.GradeTBD, Status: models.EnrollmentStatusEnrolled},
		detailResp:   &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: "enr-1", Grade: models.GradeTBD, Status: models.EnrollmentStatusEnrolled}},
	}
	svc := service.NewRegistrationService(ledger, &sectionReaderMock{}, nil, nil, nil)
	h := NewRegistrationHandler(svc, nil)

	w, c := newRegistrationTestContext(t, `{"section_id":"sec-1"}`)
	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.EnrollmentDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "enr-1", envelope.Data.ID)
	assert.Equal(t, models.GradeTBD, envelope.Data.Grade)
}

func TestRegistrationHandlerRegisterConflicts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"duplicate", repository.ErrDuplicateEnrollment, "ALREADY_ENROLLED"},
		{"full", repository.ErrCapacityReached, "SECTION_FULL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewRegistrationService(&ledgerMock{registerErr: tc.err}, &sectionReaderMock{}, nil, nil, nil)
			h := NewRegistrationHandler(svc, nil)

			w, c := newRegistrationTestContext(t, `{"section_id":"sec-1"}`)
			h.Register(c)

			require.Equal(t, http.StatusConflict, w.Code)
			var envelope struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, tc.code, envelope.Error.Code)
		})
	}
}

func TestRegistrationHandlerRegisterInvalidBody(t *testing.T) {
	svc := service.NewRegistrationService(&ledgerMock{}, &sectionReaderMock{}, nil, nil, nil)
	h := NewRegistrationHandler(svc, nil)

	w, c := newRegistrationTestContext(t, `{"section_id":`)
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerRegisterUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewRegistrationService(&ledgerMock{}, &sectionReaderMock{}, nil, nil, nil)
	h := NewRegistrationHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString(`{"section_id":"sec-1"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Register(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationHandlerDropNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ledger := &ledgerMock{}
	svc := service.NewRegistrationService(ledger, &sectionReaderMock{}, nil, nil, nil)
	h := NewRegistrationHandler(svc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/registrations/enr-1/drop", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	c.Set(middleware.ContextPrincipalKey, &models.JWTClaims{PrincipalID: "stu-1", Role: models.RoleStudent})

	h.Drop(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, ledger.dropCalled)
}
