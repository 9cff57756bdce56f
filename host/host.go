// Package host implements the tool-invocation host: a registry of named,
// schema-described operations served one call at a time over a duplex
// message stream. Every accepted call produces exactly one response
// envelope, in arrival order, and no handler failure ever terminates the
// host or corrupts the outbound framing.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trialbridge/toolhost/mcp"
)

// Transport carries framed protocol messages. Read blocks until the next
// inbound message; Write emits one complete frame.
type Transport interface {
	Read() (mcp.Message, error)
	Write(msg mcp.Message) error
}

// Config assembles a Host.
type Config struct {
	// Name and Version identify the host in the initialize exchange.
	Name    string
	Version string

	Registry  *Registry
	Transport Transport
	Logger    *slog.Logger
	Observer  Observer

	// CallTimeout bounds each handler invocation. Zero keeps the default
	// behavior of waiting indefinitely on downstream I/O.
	CallTimeout time.Duration

	// MaxResultBytes truncates serialized success payloads beyond this
	// size. Zero disables truncation.
	MaxResultBytes int
}

// Host owns the registry and the request/response loop.
type Host struct {
	name           string
	version        string
	registry       *Registry
	transport      Transport
	logger         *slog.Logger
	observer       Observer
	callTimeout    time.Duration
	maxResultBytes int
}

// New validates the configuration and returns a Host.
func New(cfg Config) (*Host, error) {
	if cfg.Registry == nil {
		return nil, errors.New("host: registry is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("host: transport is required")
	}
	name := cfg.Name
	if name == "" {
		name = "toolhost"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	return &Host{
		name:           name,
		version:        version,
		registry:       cfg.Registry,
		transport:      cfg.Transport,
		logger:         logger,
		observer:       observer,
		callTimeout:    cfg.CallTimeout,
		maxResultBytes: cfg.MaxResultBytes,
	}, nil
}

// Run processes inbound messages until the stream closes or an unrecoverable
// transport error occurs. Each request is handled to completion and its
// response fully written before the next request is read. A closed inbound
// stream returns nil; any other transport failure is returned.
func (h *Host) Run(ctx context.Context) error {
	h.logger.Info("tool host started", "name", h.name, "version", h.version, "operations", h.registry.Names())

	for {
		if err := ctx.Err(); err != nil {
			h.logger.Info("tool host stopping", "reason", err)
			return nil
		}

		msg, err := h.transport.Read()
		if err != nil {
			if errors.Is(err, mcp.ErrMalformedFrame) {
				h.logger.Warn("dropping malformed frame", "error", err)
				if werr := h.writeError(nil, mcp.CodeParseError, err.Error()); werr != nil {
					return werr
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				h.logger.Info("inbound stream closed")
				return nil
			}
			h.logger.Error("inbound stream unreadable", "error", err)
			return fmt.Errorf("host: read request: %w", err)
		}

		if err := h.dispatch(ctx, msg); err != nil {
			h.logger.Error("outbound stream failed", "error", err)
			return err
		}
	}
}

// dispatch routes one message. It returns an error only when the response
// cannot be written, which is fatal for the loop.
func (h *Host) dispatch(ctx context.Context, msg mcp.Message) error {
	switch msg.Method {
	case "initialize":
		return h.writeResult(msg.ID, mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo: mcp.ServerInfo{
				Name:    h.name,
				Version: h.version,
			},
		})
	case "notifications/initialized":
		// Client acknowledgment; no response.
		return nil
	case "ping":
		return h.writeResult(msg.ID, map[string]any{})
	case "tools/list":
		return h.writeResult(msg.ID, h.listTools())
	case "tools/call":
		return h.handleCall(ctx, msg)
	default:
		if msg.ID == nil {
			// Unknown notification; nothing to answer.
			return nil
		}
		return h.writeError(msg.ID, mcp.CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (h *Host) listTools() mcp.ToolsListResult {
	ops := h.registry.Operations()
	tools := make([]mcp.Tool, 0, len(ops))
	for _, op := range ops {
		tools = append(tools, mcp.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: op.Input.JSONSchema(),
		})
	}
	return mcp.ToolsListResult{Tools: tools}
}

// handleCall runs one tools/call request through decode, lookup, validation,
// and handler execution, and always answers with exactly one envelope.
func (h *Host) handleCall(ctx context.Context, msg mcp.Message) error {
	callID := uuid.NewString()
	start := time.Now()

	outcome := h.executeCall(ctx, callID, msg.Params)

	duration := time.Since(start)
	h.observer.ObserveCall(CallObservation{
		Operation: outcome.operation,
		CallID:    callID,
		Duration:  duration,
		Success:   !outcome.envelope.IsError,
		ErrorCode: outcome.errorCode,
	})
	h.logger.Debug("call completed",
		"call_id", callID,
		"operation", outcome.operation,
		"duration", duration,
		"is_error", outcome.envelope.IsError,
	)

	return h.writeResult(msg.ID, outcome.envelope)
}

type callOutcome struct {
	operation string
	envelope  mcp.ToolsCallResult
	errorCode string
}

// executeCall produces the response envelope for one call. Every failure
// path returns an error envelope; nothing escapes to the caller as a Go
// error, so a bad request or a failing handler can never break the loop.
func (h *Host) executeCall(ctx context.Context, callID string, params json.RawMessage) callOutcome {
	var call mcp.ToolsCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return h.failure(callID, "", Failf(CodeDecodeFailure, "invalid call parameters: %v", err))
	}

	op, ok := h.registry.Lookup(call.Name)
	if !ok {
		return h.failure(callID, call.Name, Failf(CodeOperationNotFound, "unknown operation %q", call.Name))
	}

	args, err := op.Input.Validate(call.Arguments)
	if err != nil {
		return h.failure(callID, call.Name, err)
	}

	callCtx := ctx
	if h.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.callTimeout)
		defer cancel()
	}

	value, err := h.invoke(callCtx, op, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = NewCallError(CodeTimeout, fmt.Sprintf("operation %q timed out after %s", op.Name, h.callTimeout), err)
		}
		return h.failure(callID, call.Name, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return h.failure(callID, call.Name, Failf(CodeInternal, "serialize result: %v", err))
	}

	text := string(data)
	if h.maxResultBytes > 0 && len(data) > h.maxResultBytes {
		text = string(data[:h.maxResultBytes]) + "\n[result truncated]"
	}
	return callOutcome{operation: call.Name, envelope: mcp.NewTextResult(text)}
}

// invoke runs the handler with panic isolation. A panicking handler is a
// handler failure like any other.
func (h *Host) invoke(ctx context.Context, op Operation, args Args) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("handler panicked", "operation", op.Name, "panic", r)
			value = nil
			err = Failf(CodeInternal, "operation %q panicked: %v", op.Name, r)
		}
	}()
	return op.Handler(ctx, args)
}

// failure converts any per-call error into an error envelope. Downstream
// error text is passed through unmodified.
func (h *Host) failure(callID, operation string, err error) callOutcome {
	code := callErrorCode(err, CodeUpstreamFailure)
	h.logger.Warn("call failed", "call_id", callID, "operation", operation, "code", code, "error", err)
	return callOutcome{
		operation: operation,
		envelope:  mcp.NewErrorResult(err.Error()),
		errorCode: code,
	}
}

func (h *Host) writeResult(id any, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return h.writeError(id, mcp.CodeInternalError, fmt.Sprintf("encode result: %v", err))
	}
	return h.transport.Write(mcp.Message{
		JSONRPC: mcp.Version,
		ID:      id,
		Result:  data,
	})
}

func (h *Host) writeError(id any, code int, message string) error {
	return h.transport.Write(mcp.Message{
		JSONRPC: mcp.Version,
		ID:      id,
		Error: &mcp.RPCError{
			Code:    code,
			Message: message,
		},
	})
}
