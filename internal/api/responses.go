package api

import (
	"encoding/json"
	"fmt"

	"github.com/makerhub/makerhub/internal/domain"
)

// Response type discriminators carried in the outbound envelope's
// responseType field.
const (
	ResponseTypeInstanceCreated      = "InstanceCreated"
	ResponseTypeFullInstance         = "FullInstance"
	ResponseTypeInstanceDoesNotExist = "InstanceDoesNotExist"
	ResponseTypeNoInputHandler       = "NoInputHandler"
	ResponseTypeOutputAction         = "OutputAction"
	ResponseTypeUserMessage          = "UserMessage"
	ResponseTypeSuccess              = "Success"
	ResponseTypeConnectionTestNumber = "ConnectionTestNumber"
	ResponseTypeError                = "Error"
)

// Response is implemented by every outbound payload. The type discriminator
// lives outside the payload, in the envelope, so it is a method rather than a
// serialized field.
type Response interface {
	ResponseType() string
}

// ResponseEnvelope is the outer shell of every outbound message, mirroring
// RequestEnvelope: Content is the nested JSON serialization of the payload.
type ResponseEnvelope struct {
	ResponseType string `json:"responseType"`
	Content      string `json:"content"`
}

// EncodeResponse wraps a response payload in its envelope and serializes the
// whole thing, ready for the transport-send callback.
func EncodeResponse(r Response) ([]byte, error) {
	content, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s response content: %w", r.ResponseType(), err)
	}
	envelope := ResponseEnvelope{
		ResponseType: r.ResponseType(),
		Content:      string(content),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s response envelope: %w", r.ResponseType(), err)
	}
	return payload, nil
}

type InstanceCreatedResponse struct {
	InstanceID string `json:"instanceId"`
}

func (InstanceCreatedResponse) ResponseType() string { return ResponseTypeInstanceCreated }

type FullInstanceResponse struct {
	Instance domain.Instance `json:"instance"`
}

func (FullInstanceResponse) ResponseType() string { return ResponseTypeFullInstance }

type InstanceDoesNotExistResponse struct {
	InstanceID string `json:"instanceId"`
}

func (InstanceDoesNotExistResponse) ResponseType() string { return ResponseTypeInstanceDoesNotExist }

// NoInputHandlerResponse reports that no handler matched an input event. This
// is a normal outcome with its own response kind, not an error.
type NoInputHandlerResponse struct {
	InstanceID string `json:"instanceId"`
	InputName  string `json:"inputName"`
}

func (NoInputHandlerResponse) ResponseType() string { return ResponseTypeNoInputHandler }

type OutputActionResponse struct {
	InstanceID string `json:"instanceId"`
	OutputName string `json:"outputName"`
	Data       string `json:"data"`
}

func (OutputActionResponse) ResponseType() string { return ResponseTypeOutputAction }

// UserMessageResponse carries a human-readable log line for the instance's
// administrative console.
type UserMessageResponse struct {
	InstanceID string `json:"instanceId"`
	Message    string `json:"message"`
}

func (UserMessageResponse) ResponseType() string { return ResponseTypeUserMessage }

type SuccessResponse struct {
	Message string `json:"message"`
}

func (SuccessResponse) ResponseType() string { return ResponseTypeSuccess }

// ConnectionTestNumberResponse echoes the number from a connection test
// request, verifying liveness without touching storage.
type ConnectionTestNumberResponse struct {
	InstanceID           string `json:"instanceId"`
	ConnectionTestNumber string `json:"connectionTestNumber"`
}

func (ConnectionTestNumberResponse) ResponseType() string { return ResponseTypeConnectionTestNumber }

type ErrorResponse struct {
	Message string `json:"message"`
}

func (ErrorResponse) ResponseType() string { return ResponseTypeError }
