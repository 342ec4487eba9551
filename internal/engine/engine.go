package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/makerhub/makerhub/internal/api"
	"github.com/makerhub/makerhub/internal/dispatch"
	"github.com/makerhub/makerhub/internal/domain"
	"github.com/makerhub/makerhub/internal/python"
	"github.com/makerhub/makerhub/internal/storage"
)

// ScriptRunner executes user code with a set of variables in scope. Satisfied
// by *python.Runner; tests substitute their own.
type ScriptRunner interface {
	Run(ctx context.Context, userCode string, variables []domain.Variable) (*python.RunResult, error)
}

// OutputQueue receives every response the engine produces. Responses are
// never returned synchronously; delivery pacing is the dispatcher's concern.
type OutputQueue interface {
	Enqueue(env dispatch.Envelope)
}

// Engine owns all instance state transitions. Every persistence write goes
// through the optimistic-concurrency retry wrapper; the version check is the
// only concurrency guard over the shared store.
type Engine struct {
	store  storage.InstanceStore
	runner ScriptRunner

	retryDelay  time.Duration
	maxAttempts int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetry overrides the conflict retry parameters. Tests shrink the delay.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Engine) {
		e.maxAttempts = maxAttempts
		e.retryDelay = delay
	}
}

// NewEngine creates an engine over the given store and script runner.
func NewEngine(store storage.InstanceStore, runner ScriptRunner, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		runner:      runner,
		retryDelay:  200 * time.Millisecond,
		maxAttempts: 10,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateInstance creates a brand new instance with the origin connection as
// its administrative connection, and acknowledges the origin only.
func (e *Engine) CreateInstance(ctx context.Context, req api.CreateInstanceRequest, connectionID string, out OutputQueue) error {
	instance := domain.Instance{
		ID:                req.InstanceID,
		Name:              req.InstanceName,
		AdminConnectionID: connectionID,
	}

	rec := &storage.InstanceRecord{
		ID:               req.InstanceID,
		CreatedTimestamp: time.Now().UTC(),
		Instance:         instance,
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return err
	}

	slog.Info("Created instance", "instance_id", instance.ID, "name", instance.Name)
	out.Enqueue(dispatch.Envelope{
		Response:     api.InstanceCreatedResponse{InstanceID: instance.ID},
		ConnectionID: connectionID,
	})
	return nil
}

// ConnectToInstance records the origin as the instance's administrative
// connection. A missing instance is a normal outcome here, not an error: a
// console may probe for an instance before anyone created it.
func (e *Engine) ConnectToInstance(ctx context.Context, req api.ConnectToInstanceRequest, connectionID string, out OutputQueue) error {
	rec, err := e.store.Get(ctx, req.InstanceID)
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			out.Enqueue(dispatch.Envelope{
				Response:     api.InstanceDoesNotExistResponse{InstanceID: req.InstanceID},
				ConnectionID: connectionID,
			})
			return nil
		}
		return err
	}

	instance := &rec.Instance
	if instance.AdminConnectionID != connectionID {
		instance, err = e.updateInstance(ctx, req.InstanceID, func(inst *domain.Instance) error {
			inst.AdminConnectionID = connectionID
			return nil
		})
		if err != nil {
			return err
		}
		slog.Info("Instance admin reconnected", "instance_id", req.InstanceID, "connection_id", connectionID)
	}

	e.broadcastSnapshot(instance, connectionID, out)
	return nil
}

// AddInputEventHandler appends a new handler. Only the administrative
// connection may change handlers; event names are unique ignoring case.
func (e *Engine) AddInputEventHandler(ctx context.Context, req api.AddNewInputEventHandlerRequest, connectionID string, out OutputQueue) error {
	instance, err := e.updateInstance(ctx, req.InstanceID, func(inst *domain.Instance) error {
		if inst.AdminConnectionID != connectionID {
			return fmt.Errorf("add handler %s: %w", req.InputEventName, domain.ErrNotAdminConnection)
		}
		if inst.FindHandler(req.InputEventName) != nil {
			return fmt.Errorf("handler %s: %w", req.InputEventName, domain.ErrDuplicateHandler)
		}
		inst.InputEventHandlers = append(inst.InputEventHandlers, domain.InputEventHandler{
			InputEventName: req.InputEventName,
			PythonCode:     req.PythonCode,
		})
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Added input event handler", "instance_id", req.InstanceID, "event", req.InputEventName)
	e.broadcastSnapshot(instance, connectionID, out)
	return nil
}

// DeleteInputEventHandler removes an existing handler.
func (e *Engine) DeleteInputEventHandler(ctx context.Context, req api.DeleteInputEventHandlerRequest, connectionID string, out OutputQueue) error {
	instance, err := e.updateInstance(ctx, req.InstanceID, func(inst *domain.Instance) error {
		if inst.AdminConnectionID != connectionID {
			return fmt.Errorf("delete handler %s: %w", req.InputEventName, domain.ErrNotAdminConnection)
		}
		for i, h := range inst.InputEventHandlers {
			if strings.EqualFold(h.InputEventName, req.InputEventName) {
				inst.InputEventHandlers = append(inst.InputEventHandlers[:i], inst.InputEventHandlers[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("handler %s: %w", req.InputEventName, domain.ErrHandlerNotFound)
	})
	if err != nil {
		return err
	}

	slog.Info("Deleted input event handler", "instance_id", req.InstanceID, "event", req.InputEventName)
	e.broadcastSnapshot(instance, connectionID, out)
	return nil
}

// UpdateCode replaces the script body of an existing handler.
func (e *Engine) UpdateCode(ctx context.Context, req api.UpdateCodeRequest, connectionID string, out OutputQueue) error {
	instance, err := e.updateInstance(ctx, req.InstanceID, func(inst *domain.Instance) error {
		if inst.AdminConnectionID != connectionID {
			return fmt.Errorf("update handler %s: %w", req.InputEventName, domain.ErrNotAdminConnection)
		}
		handler := inst.FindHandler(req.InputEventName)
		if handler == nil {
			return fmt.Errorf("handler %s: %w", req.InputEventName, domain.ErrHandlerNotFound)
		}
		handler.PythonCode = req.PythonCode
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Updated handler code", "instance_id", req.InstanceID, "event", req.InputEventName)
	e.broadcastSnapshot(instance, connectionID, out)
	return nil
}

// ConnectInputOutputDevice registers the origin connection as the receiver
// for each named output, overwriting any previous binding (last writer wins).
// The whole batch persists in a single write; the origin alone is
// acknowledged.
func (e *Engine) ConnectInputOutputDevice(ctx context.Context, req api.ConnectInputOutputDeviceRequest, connectionID string, out OutputQueue) error {
	if _, err := e.store.Get(ctx, req.InstanceID); err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			out.Enqueue(dispatch.Envelope{
				Response:     api.InstanceDoesNotExistResponse{InstanceID: req.InstanceID},
				ConnectionID: connectionID,
			})
			return nil
		}
		return err
	}

	_, err := e.updateInstance(ctx, req.InstanceID, func(inst *domain.Instance) error {
		for _, name := range req.OutputReceiverNames {
			inst.UpsertReceiver(name, connectionID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Connected output device",
		"instance_id", req.InstanceID,
		"receivers", req.OutputReceiverNames,
		"connection_id", connectionID,
	)
	out.Enqueue(dispatch.Envelope{
		Response:     api.SuccessResponse{Message: "Output device connected"},
		ConnectionID: connectionID,
	})
	return nil
}

// InputReceived is the central operation: it matches the input event against
// the instance's handlers, runs the matching script, and routes every emitted
// output action to the receivers subscribed under the action's name.
func (e *Engine) InputReceived(ctx context.Context, req api.InputReceivedRequest, connectionID string, out OutputQueue) error {
	rec, err := e.store.Get(ctx, req.InstanceID)
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			out.Enqueue(dispatch.Envelope{
				Response:     api.InstanceDoesNotExistResponse{InstanceID: req.InstanceID},
				ConnectionID: connectionID,
			})
			return nil
		}
		return err
	}
	instance := &rec.Instance

	handler := instance.FindHandler(req.InputName)
	if handler == nil {
		// A missing handler is expected, normal behavior: the user simply
		// has not written one yet.
		slog.Info("No handler for input event", "instance_id", instance.ID, "event", req.InputName)
		e.notifyAdmin(instance, fmt.Sprintf("No handler is defined for input event %q.", req.InputName), out)
		out.Enqueue(dispatch.Envelope{
			Response:     api.NoInputHandlerResponse{InstanceID: instance.ID, InputName: req.InputName},
			ConnectionID: connectionID,
		})
		return nil
	}

	e.notifyAdmin(instance, fmt.Sprintf("Received input event %q. Running its handler.", req.InputName), out)

	variables := []domain.Variable{
		{Name: "data", Type: domain.VariableTypeString, Value: req.Data},
	}
	result, err := e.runner.Run(ctx, handler.PythonCode, variables)
	if err != nil {
		return fmt.Errorf("handler %s failed: %w", handler.InputEventName, err)
	}

	for _, action := range result.OutputActions {
		e.notifyAdmin(instance, fmt.Sprintf("Output action %q with data %q.", action.ActionName, action.Argument), out)
		for _, receiverConn := range instance.ReceiversFor(action.ActionName) {
			out.Enqueue(dispatch.Envelope{
				Response: api.OutputActionResponse{
					InstanceID: instance.ID,
					OutputName: action.ActionName,
					Data:       action.Argument,
				},
				ConnectionID: receiverConn,
			})
		}
		// Action names with no connected receiver are silently dropped; the
		// script author may target devices that are not currently attached.
	}

	e.notifyAdmin(instance, fmt.Sprintf("Finished handling input event %q.", req.InputName), out)
	return nil
}

// ConnectionTestNumber echoes the test number back to the origin. No storage
// access; used only to verify liveness.
func (e *Engine) ConnectionTestNumber(_ context.Context, req api.ConnectionTestNumberRequest, connectionID string, out OutputQueue) error {
	out.Enqueue(dispatch.Envelope{
		Response: api.ConnectionTestNumberResponse{
			InstanceID:           req.InstanceID,
			ConnectionTestNumber: req.ConnectionTestNumber,
		},
		ConnectionID: connectionID,
	})
	return nil
}

// broadcastSnapshot sends the full instance state to the origin connection
// and to every currently registered output receiver, so consoles stay in
// sync. Used uniformly by every operation that mutates the instance.
func (e *Engine) broadcastSnapshot(instance *domain.Instance, originConnectionID string, out OutputQueue) {
	response := api.FullInstanceResponse{Instance: *instance}
	out.Enqueue(dispatch.Envelope{Response: response, ConnectionID: originConnectionID})

	seen := map[string]bool{originConnectionID: true}
	for _, receiver := range instance.OutputReceivers {
		if receiver.ConnectionID == "" || seen[receiver.ConnectionID] {
			continue
		}
		seen[receiver.ConnectionID] = true
		out.Enqueue(dispatch.Envelope{Response: response, ConnectionID: receiver.ConnectionID})
	}
}

// notifyAdmin sends a human-readable log line to the instance's
// administrative console, if one is connected.
func (e *Engine) notifyAdmin(instance *domain.Instance, message string, out OutputQueue) {
	if instance.AdminConnectionID == "" {
		return
	}
	out.Enqueue(dispatch.Envelope{
		Response:     api.UserMessageResponse{InstanceID: instance.ID, Message: message},
		ConnectionID: instance.AdminConnectionID,
	})
}
