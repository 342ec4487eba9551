package domain

import "strings"

// Instance is the top-level stateful entity a group of clients collaboratively
// operate. It is mutated only through the engine, which persists every change
// with an optimistic version check.
type Instance struct {
	ID                 string              `json:"instanceId"`
	Name               string              `json:"instanceName"`
	AdminConnectionID  string              `json:"adminConnectionId"`
	InputEventHandlers []InputEventHandler `json:"inputEventHandlers"`
	OutputReceivers    []OutputReceiver    `json:"outputReceivers"`
	IsRunning          bool                `json:"isRunning"`
}

// InputEventHandler is a named, user-authored script invoked when a matching
// input event occurs. Event names are unique within an instance,
// case-insensitively.
type InputEventHandler struct {
	InputEventName string `json:"inputEventName"`
	PythonCode     string `json:"pythonCode"`
}

// OutputReceiver is a named destination connection that output actions may be
// routed to. At most one receiver exists per name; re-registration under the
// same name rebinds the connection id.
type OutputReceiver struct {
	OutputReceiverName string `json:"outputReceiverName"`
	ConnectionID       string `json:"connectionId"`
}

// FindHandler returns the handler whose event name matches, ignoring case.
func (i *Instance) FindHandler(eventName string) *InputEventHandler {
	for n := range i.InputEventHandlers {
		if strings.EqualFold(i.InputEventHandlers[n].InputEventName, eventName) {
			return &i.InputEventHandlers[n]
		}
	}
	return nil
}

// UpsertReceiver binds the named receiver to the given connection id,
// replacing any existing binding under the same name (last writer wins).
func (i *Instance) UpsertReceiver(name, connectionID string) {
	for n := range i.OutputReceivers {
		if strings.EqualFold(i.OutputReceivers[n].OutputReceiverName, name) {
			i.OutputReceivers[n].ConnectionID = connectionID
			return
		}
	}
	i.OutputReceivers = append(i.OutputReceivers, OutputReceiver{
		OutputReceiverName: name,
		ConnectionID:       connectionID,
	})
}

// ReceiversFor returns the connection ids of every receiver whose name
// matches the action name, ignoring case.
func (i *Instance) ReceiversFor(actionName string) []string {
	var conns []string
	for _, r := range i.OutputReceivers {
		if strings.EqualFold(r.OutputReceiverName, actionName) {
			conns = append(conns, r.ConnectionID)
		}
	}
	return conns
}
