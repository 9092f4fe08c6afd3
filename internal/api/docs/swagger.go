package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// IdentityResponse describes an enrolled employee
type IdentityResponse struct {
	ID           string `json:"id" example:"E001"`
	DisplayName  string `json:"display_name" example:"Ana Souza"`
	EmbeddingDim int    `json:"embedding_dim" example:"192"`
	EnrolledAt   string `json:"enrolled_at" example:"2024-03-01T14:04:09Z"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Count      int                `json:"count" example:"1"`
}

// AttendanceEvent is one recorded clock-in
type AttendanceEvent struct {
	ID          string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	IdentityID  string  `json:"identity_id" example:"E001"`
	DisplayName string  `json:"display_name" example:"Ana Souza"`
	Timestamp   string  `json:"timestamp" example:"2024-03-01T14:04:09Z"`
	Score       float64 `json:"score" example:"0.91"`
	Delivered   bool    `json:"delivered" example:"true"`
	DeliveredAt string  `json:"delivered_at,omitempty" example:"2024-03-01T14:04:10Z"`
}

type AttendanceListResponse struct {
	Events []AttendanceEvent `json:"events"`
	Count  int               `json:"count" example:"1"`
}

type ResyncResponse struct {
	Delivered int    `json:"delivered" example:"3"`
	Remaining int64  `json:"remaining" example:"0"`
	Error     string `json:"error,omitempty" example:""`
}

type SubmitFrameResponse struct {
	Accepted bool `json:"accepted" example:"true"`
	Replaced bool `json:"replaced" example:"false"`
}

type SessionData struct {
	State     int  `json:"state" example:"1"`
	SmileSeen bool `json:"smile_seen" example:"true"`
	BlinkSeen bool `json:"blink_seen" example:"false"`
}

// StatusUpdate is the outcome of one analyzed frame, also pushed over /v1/ws
type StatusUpdate struct {
	Status       string      `json:"status" example:"recognized"`
	Message      string      `json:"message" example:"Attendance recorded for Ana Souza"`
	Session      SessionData `json:"session"`
	State        string      `json:"state" example:"completed"`
	IdentityID   string      `json:"identity_id,omitempty" example:"E001"`
	DisplayName  string      `json:"display_name,omitempty" example:"Ana Souza"`
	Score        float64     `json:"score,omitempty" example:"0.91"`
	AttendanceID string      `json:"attendance_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Delivered    bool        `json:"delivered,omitempty" example:"true"`
	At           string      `json:"at" example:"2024-03-01T14:04:09Z"`
}

type SessionResponse struct {
	Session SessionData `json:"session"`
	State   string      `json:"state" example:"checking_liveness"`
	Prompt  string      `json:"prompt" example:"Please blink your eyes"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API token"}, "401", "Unauthorized")
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	bearer          = []map[string][]string{{"BearerAuth": {}}}
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Ponto Attendance API",
		Version:     "v1.0.0",
		Description: "Face attendance kiosk: liveness-gated identification, employee enrollment and attendance delivery",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Identities

		endpoint.New(
			endpoint.POST,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Enroll an employee"),
			endpoint.WithDescription("Multipart form with id, display_name, an optional rotation (clockwise degrees, multiple of 90) and image (JPEG or PNG with exactly one face). Enrolling an existing id replaces it."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "201", "Identity enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INFERENCE_UNAVAILABLE", Message: "Embedding model is unavailable"}, "503", "Service Unavailable"),
				errInternal,
			}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.GET,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("List enrolled employees"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityListResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.GET,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an enrolled employee"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.DELETE,
			"/identities/{id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Remove an employee from the registry"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Employee identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity(bearer),
		),

		// Kiosk

		endpoint.New(
			endpoint.POST,
			"/frames",
			endpoint.WithTags("Kiosk"),
			endpoint.WithSummary("Submit a camera frame"),
			endpoint.WithDescription("Queues a raw JPEG or PNG frame. X-Rotation-Degrees carries the clockwise rotation (multiple of 90). Outcomes are pushed over /v1/ws."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("image/jpeg"), mime.MIME("image/png")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("sync", parameter.Query, parameter.WithDescription("true waits for the frame and returns its outcome")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SubmitFrameResponse{}, "202", "Frame queued"),
				response.New(StatusUpdate{}, "200", "Frame analyzed (sync=true)"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid or corrupted image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "FRAME_DROPPED", Message: "Another frame is being processed"}, "429", "Too Many Requests"),
			}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.GET,
			"/session",
			endpoint.WithTags("Kiosk"),
			endpoint.WithSummary("Current liveness session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.POST,
			"/session/reset",
			endpoint.WithTags("Kiosk"),
			endpoint.WithSummary("Abandon the current attempt"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized}),
			endpoint.WithSecurity(bearer),
		),

		// Attendance

		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Attendance history, newest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of events (1-1000, default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceListResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.GET,
			"/attendance/pending",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Events waiting for delivery, oldest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceListResponse{}, "200", "OK"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(bearer),
		),

		endpoint.New(
			endpoint.POST,
			"/attendance/resync",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Deliver pending events now"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ResyncResponse{}, "200", "Flush finished; error is set when it stopped early"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			endpoint.WithSecurity(bearer),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
