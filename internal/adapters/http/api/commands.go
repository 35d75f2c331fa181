package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/herobot/internal/domain/dedupe"
	"github.com/okian/herobot/internal/domain/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CommandDependencies is the slice of Dependencies the command intake needs.
type CommandDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, cmd model.Command) bool
}

// CommandsHandler accepts chat commands for asynchronous processing.
type CommandsHandler struct {
	deps CommandDependencies
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(deps CommandDependencies) *CommandsHandler {
	return &CommandsHandler{deps: deps}
}

// commandRequest is the body of POST /commands. CommandID is generated
// when omitted, which makes the request non-idempotent.
type commandRequest struct {
	CommandID string `json:"command_id" validate:"omitempty,max=128"`
	Name      string `json:"name" validate:"required"`
	Hero      string `json:"hero" validate:"required_unless=Name herostats_id,max=64"`
	HeroID    *int   `json:"hero_id" validate:"omitempty,min=0,max=255"`
}

func (c commandRequest) validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("invalid %s: %s", ve[0].Field(), ve[0].Tag())
		}
		return err
	}
	if c.Name == model.CommandHeroStatsID && c.HeroID == nil {
		return errors.New("missing hero_id")
	}
	return nil
}

func (c commandRequest) command() model.Command {
	cmd := model.Command{
		ID:       strings.TrimSpace(c.CommandID),
		Name:     c.Name,
		Hero:     strings.TrimSpace(c.Hero),
		Received: time.Now(),
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if c.HeroID != nil {
		cmd.HeroID = uint8(*c.HeroID)
	}
	return cmd
}

type ackResponse struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostCommand handles POST /commands requests.
func (h *CommandsHandler) HandlePostCommand(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_command"
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if !model.Known(req.Name) {
		writeError(w, http.StatusBadRequest, "unknown_command",
			WrapKind(op, ErrUnknownCommand, fmt.Errorf("%q", req.Name)))
		return
	}
	cmd := req.command()

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), cmd.ID) {
		writeJSON(w, http.StatusOK, ackResponse{CommandID: cmd.ID, Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), cmd); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), cmd.ID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{CommandID: cmd.ID, Status: "accepted"})
}
