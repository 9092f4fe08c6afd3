package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) Enroll(ctx context.Context, id, displayName string, frame domain.Frame) (*domain.EnrolledIdentity, error) {
	args := m.Called(ctx, id, displayName, frame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrolledIdentity), args.Error(1)
}

func (m *MockIdentityService) Get(ctx context.Context, id string) (*domain.EnrolledIdentity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrolledIdentity), args.Error(1)
}

func (m *MockIdentityService) List(ctx context.Context) ([]domain.EnrolledIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EnrolledIdentity), args.Error(1)
}

func (m *MockIdentityService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) IdentityEnrolled(identity *domain.EnrolledIdentity) {
	m.Called(identity)
}

func (m *MockNotifier) IdentityDeleted(id string) {
	m.Called(id)
}

func TestIdentityHandler_Enroll(t *testing.T) {
	img := jpegBytes(t)
	enrolledAt := time.Date(2024, 3, 1, 14, 4, 9, 0, time.UTC)
	identity := &domain.EnrolledIdentity{
		ID:          "E001",
		DisplayName: "Ana Souza",
		Embedding:   make(domain.Embedding, 192),
		EnrolledAt:  enrolledAt,
	}

	tests := []struct {
		name           string
		fields         map[string]string
		image          []byte
		contentType    string
		setupMocks     func(*MockIdentityService, *MockNotifier)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:        "successful enrollment",
			fields:      map[string]string{"id": "E001", "display_name": "Ana Souza"},
			image:       img,
			contentType: "image/jpeg",
			setupMocks: func(s *MockIdentityService, n *MockNotifier) {
				s.On("Enroll", mock.Anything, "E001", "Ana Souza", mock.MatchedBy(func(f domain.Frame) bool {
					return f.Image != nil && f.RotationDegrees == 90
				})).Return(identity, nil)
				n.On("IdentityEnrolled", identity).Return()
			},
			expectedStatus: 201,
		},
		{
			name:           "missing id",
			fields:         map[string]string{"display_name": "Ana Souza"},
			image:          img,
			contentType:    "image/jpeg",
			setupMocks:     func(s *MockIdentityService, n *MockNotifier) {},
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "missing display name",
			fields:         map[string]string{"id": "E001"},
			image:          img,
			contentType:    "image/jpeg",
			setupMocks:     func(s *MockIdentityService, n *MockNotifier) {},
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "missing image",
			fields:         map[string]string{"id": "E001", "display_name": "Ana Souza"},
			setupMocks:     func(s *MockIdentityService, n *MockNotifier) {},
			expectedStatus: 422,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "unsupported image type",
			fields:         map[string]string{"id": "E001", "display_name": "Ana Souza"},
			image:          img,
			contentType:    "image/gif",
			setupMocks:     func(s *MockIdentityService, n *MockNotifier) {},
			expectedStatus: 422,
			expectedCode:   "INVALID_IMAGE",
		},
		{
			name:           "undecodable image",
			fields:         map[string]string{"id": "E001", "display_name": "Ana Souza"},
			image:          []byte("not really a jpeg"),
			contentType:    "image/jpeg",
			setupMocks:     func(s *MockIdentityService, n *MockNotifier) {},
			expectedStatus: 422,
			expectedCode:   "INVALID_IMAGE",
		},
		{
			name:        "no face in photo",
			fields:      map[string]string{"id": "E001", "display_name": "Ana Souza"},
			image:       img,
			contentType: "image/jpeg",
			setupMocks: func(s *MockIdentityService, n *MockNotifier) {
				s.On("Enroll", mock.Anything, "E001", "Ana Souza", mock.Anything).Return(nil, domain.ErrNoFaceDetected)
			},
			expectedStatus: 422,
			expectedCode:   "NO_FACE_DETECTED",
		},
		{
			name:        "model unavailable",
			fields:      map[string]string{"id": "E001", "display_name": "Ana Souza"},
			image:       img,
			contentType: "image/jpeg",
			setupMocks: func(s *MockIdentityService, n *MockNotifier) {
				s.On("Enroll", mock.Anything, "E001", "Ana Souza", mock.Anything).Return(nil, domain.ErrInferenceUnavailable)
			},
			expectedStatus: 503,
			expectedCode:   "INFERENCE_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockIdentityService{}
			notifier := &MockNotifier{}
			tt.setupMocks(svc, notifier)

			h := NewIdentityHandler(svc, notifier, testLogger())
			app := newTestApp()
			app.Post("/v1/identities", h.Enroll)

			fields := map[string]string{"rotation": "90"}
			for k, v := range tt.fields {
				fields[k] = v
			}
			body, contentType := createMultipartRequest(fields, tt.image, tt.contentType)
			req := httptest.NewRequest("POST", "/v1/identities", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			respBody, _ := io.ReadAll(resp.Body)
			if tt.expectedCode != "" {
				var errResp middleware.ErrorResponse
				require.NoError(t, json.Unmarshal(respBody, &errResp))
				assert.Equal(t, tt.expectedCode, errResp.Error.Code)
			} else {
				var got IdentityResponse
				require.NoError(t, json.Unmarshal(respBody, &got))
				assert.Equal(t, "E001", got.ID)
				assert.Equal(t, "Ana Souza", got.DisplayName)
				assert.Equal(t, 192, got.EmbeddingDim)
				assert.Equal(t, "2024-03-01T14:04:09Z", got.EnrolledAt)
			}

			svc.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestIdentityHandler_List(t *testing.T) {
	svc := &MockIdentityService{}
	svc.On("List", mock.Anything).Return([]domain.EnrolledIdentity{
		{ID: "E001", DisplayName: "Ana", Embedding: make(domain.Embedding, 4)},
		{ID: "E002", DisplayName: "Bruno", Embedding: make(domain.Embedding, 4)},
	}, nil)

	h := NewIdentityHandler(svc, nil, testLogger())
	app := newTestApp()
	app.Get("/v1/identities", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/identities", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got IdentityListResponse
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "E002", got.Identities[1].ID)
}

func TestIdentityHandler_ListEmpty(t *testing.T) {
	svc := &MockIdentityService{}
	svc.On("List", mock.Anything).Return([]domain.EnrolledIdentity{}, nil)

	h := NewIdentityHandler(svc, nil, testLogger())
	app := newTestApp()
	app.Get("/v1/identities", h.List)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/identities", nil))
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"identities":[],"count":0}`, string(body))
}

func TestIdentityHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockIdentityService)
		expectedStatus int
	}{
		{
			name: "found",
			id:   "E001",
			setupMock: func(m *MockIdentityService) {
				m.On("Get", mock.Anything, "E001").Return(&domain.EnrolledIdentity{ID: "E001", DisplayName: "Ana"}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "not found",
			id:   "E404",
			setupMock: func(m *MockIdentityService) {
				m.On("Get", mock.Anything, "E404").Return(nil, domain.ErrIdentityNotFound)
			},
			expectedStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockIdentityService{}
			tt.setupMock(svc)

			h := NewIdentityHandler(svc, nil, testLogger())
			app := newTestApp()
			app.Get("/v1/identities/:id", h.Get)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/identities/"+tt.id, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}

func TestIdentityHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := &MockIdentityService{}
		svc.On("Delete", mock.Anything, "E001").Return(nil)
		notifier := &MockNotifier{}
		notifier.On("IdentityDeleted", "E001").Return()

		h := NewIdentityHandler(svc, notifier, testLogger())
		app := newTestApp()
		app.Delete("/v1/identities/:id", h.Delete)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/identities/E001", nil))
		require.NoError(t, err)
		assert.Equal(t, 204, resp.StatusCode)
		svc.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("unknown identity", func(t *testing.T) {
		svc := &MockIdentityService{}
		svc.On("Delete", mock.Anything, "E404").Return(domain.ErrIdentityNotFound)
		notifier := &MockNotifier{}

		h := NewIdentityHandler(svc, notifier, testLogger())
		app := newTestApp()
		app.Delete("/v1/identities/:id", h.Delete)

		resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/identities/E404", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		notifier.AssertNotCalled(t, "IdentityDeleted", mock.Anything)
	})
}
