package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/makerhub/makerhub/internal/api"
	"github.com/makerhub/makerhub/internal/dispatch"
	"github.com/makerhub/makerhub/internal/engine"
	"github.com/makerhub/makerhub/internal/pubsub"
)

// Router decodes inbound request envelopes from the bus and dispatches them
// to the matching engine operation. It is the single subscriber of the
// request topic, so operations run one at a time in arrival order.
type Router struct {
	engine    *engine.Engine
	queue     engine.OutputQueue
	validator *api.CustomValidator
}

// NewRouter creates a router over the given engine and output queue.
func NewRouter(eng *engine.Engine, queue engine.OutputQueue) *Router {
	return &Router{
		engine:    eng,
		queue:     queue,
		validator: api.NewValidator(),
	}
}

// Handle processes one inbound message. It implements pubsub.Handler. A
// malformed or failed request never crashes the router: the origin gets an
// Error response and the next request proceeds.
func (r *Router) Handle(ctx context.Context, msg pubsub.Message) error {
	if err := r.dispatch(ctx, msg); err != nil {
		slog.Error("Request failed", "connection_id", msg.ConnectionID, "error", err)
		r.queue.Enqueue(dispatch.Envelope{
			Response:     api.ErrorResponse{Message: err.Error()},
			ConnectionID: msg.ConnectionID,
		})
	}
	return nil
}

func (r *Router) dispatch(ctx context.Context, msg pubsub.Message) error {
	var envelope api.RequestEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return fmt.Errorf("failed to decode request envelope: %w", err)
	}
	if err := r.validator.Validate(&envelope); err != nil {
		return fmt.Errorf("invalid request envelope: %w", err)
	}

	slog.Debug("Dispatching request", "request_type", envelope.RequestType, "connection_id", msg.ConnectionID)

	switch envelope.RequestType {
	case api.RequestTypeCreateInstance:
		req, err := decodeContent[api.CreateInstanceRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.CreateInstance(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeConnectToInstance:
		req, err := decodeContent[api.ConnectToInstanceRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.ConnectToInstance(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeAddNewInputEventHandler:
		req, err := decodeContent[api.AddNewInputEventHandlerRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.AddInputEventHandler(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeDeleteInputEventHandler:
		req, err := decodeContent[api.DeleteInputEventHandlerRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.DeleteInputEventHandler(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeUpdateCode:
		req, err := decodeContent[api.UpdateCodeRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.UpdateCode(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeConnectInputOutputDevice:
		req, err := decodeContent[api.ConnectInputOutputDeviceRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.ConnectInputOutputDevice(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeInputReceived:
		req, err := decodeContent[api.InputReceivedRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.InputReceived(ctx, req, msg.ConnectionID, r.queue)

	case api.RequestTypeConnectionTestNumber:
		req, err := decodeContent[api.ConnectionTestNumberRequest](r, envelope.Content)
		if err != nil {
			return err
		}
		return r.engine.ConnectionTestNumber(ctx, req, msg.ConnectionID, r.queue)

	default:
		return fmt.Errorf("unknown request type %q", envelope.RequestType)
	}
}

// decodeContent unmarshals and validates the nested content document of an
// envelope into a concrete request type.
func decodeContent[T any](r *Router, content string) (T, error) {
	var req T
	if err := json.Unmarshal([]byte(content), &req); err != nil {
		return req, fmt.Errorf("failed to decode request content: %w", err)
	}
	if err := r.validator.Validate(&req); err != nil {
		return req, fmt.Errorf("invalid request content: %w", err)
	}
	return req, nil
}
