package api

// Request type discriminators carried in the inbound envelope's requestType
// field. Each maps to one engine operation.
const (
	RequestTypeCreateInstance           = "CreateInstance"
	RequestTypeConnectToInstance        = "ConnectToInstance"
	RequestTypeAddNewInputEventHandler  = "AddNewInputEventHandler"
	RequestTypeDeleteInputEventHandler  = "DeleteInputEventHandler"
	RequestTypeUpdateCode               = "UpdateCode"
	RequestTypeConnectInputOutputDevice = "ConnectInputOutputDevice"
	RequestTypeInputReceived            = "InputReceived"
	RequestTypeConnectionTestNumber     = "ConnectionTestNumber"
)

// RequestEnvelope is the outer shell of every inbound message. Content is a
// nested JSON document holding one of the request payloads below, selected by
// RequestType.
type RequestEnvelope struct {
	RequestType string `json:"requestType" validate:"required"`
	Content     string `json:"content" validate:"required"`
}

type CreateInstanceRequest struct {
	InstanceID   string `json:"instanceId" validate:"required"`
	InstanceName string `json:"instanceName" validate:"required"`
}

type ConnectToInstanceRequest struct {
	InstanceID string `json:"instanceId" validate:"required"`
}

type AddNewInputEventHandlerRequest struct {
	InstanceID     string `json:"instanceId" validate:"required"`
	InputEventName string `json:"inputEventName" validate:"required"`
	PythonCode     string `json:"pythonCode"`
}

type DeleteInputEventHandlerRequest struct {
	InstanceID     string `json:"instanceId" validate:"required"`
	InputEventName string `json:"inputEventName" validate:"required"`
}

type UpdateCodeRequest struct {
	InstanceID     string `json:"instanceId" validate:"required"`
	InputEventName string `json:"inputEventName" validate:"required"`
	PythonCode     string `json:"pythonCode"`
}

type ConnectInputOutputDeviceRequest struct {
	InstanceID          string   `json:"instanceId" validate:"required"`
	OutputReceiverNames []string `json:"outputReceiverNames" validate:"required,min=1"`
}

type InputReceivedRequest struct {
	InstanceID string `json:"instanceId" validate:"required"`
	InputName  string `json:"inputName" validate:"required"`
	Data       string `json:"data"`
}

type ConnectionTestNumberRequest struct {
	InstanceID           string `json:"instanceId"`
	ConnectionTestNumber string `json:"connectionTestNumber" validate:"required"`
}
