// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"calorie-bot/internal/bot"
)

type toolHandler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type UserParams struct {
	UserID         int64 `json:"user_id" description:"Messaging platform user id"`
	ConversationID int64 `json:"conversation_id,omitempty" description:"Conversation id (defaults to the user id)"`
}

type TextParams struct {
	UserParams
	Text string `json:"text" description:"Free text sent by the user"`
}

type RemoveEntryParams struct {
	UserParams
	EntryID int64 `json:"entry_id" description:"Entry id from a log_food response"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

func (p UserParams) validate() error {
	if p.UserID == 0 {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

func (s *CalorieServer) registerTools() {
	s.tools = map[string]toolHandler{
		"start_onboarding": s.userTool(bot.OnboardingStart),
		"today":            s.userTool(bot.TodayQuery),
		"onboarding_reply": s.textTool(bot.OnboardingReply),
		"log_food":         s.textTool(bot.FoodText),
		"add_custom_food":  s.textTool(bot.AddCustomText),
		"remove_entry":     s.handleRemoveEntry,
	}

	for name := range s.tools {
		s.log.WithField("tool", name).Debug("registered tool")
	}
}

func (s *CalorieServer) userTool(kind bot.EventKind) toolHandler {
	return func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
		var params UserParams
		if err := extractParams(req, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if err := params.validate(); err != nil {
			return nil, err
		}

		reply := s.handler.Handle(ctx, bot.Event{
			Kind:           kind,
			UserID:         params.UserID,
			ConversationID: params.ConversationID,
		})
		return s.createJSONResponse(reply)
	}
}

func (s *CalorieServer) textTool(kind bot.EventKind) toolHandler {
	return func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
		var params TextParams
		if err := extractParams(req, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if err := params.validate(); err != nil {
			return nil, err
		}
		if params.Text == "" {
			return nil, fmt.Errorf("text is required")
		}

		reply := s.handler.Handle(ctx, bot.Event{
			Kind:           kind,
			UserID:         params.UserID,
			ConversationID: params.ConversationID,
			Text:           params.Text,
		})
		return s.createJSONResponse(reply)
	}
}

func (s *CalorieServer) handleRemoveEntry(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RemoveEntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.EntryID <= 0 {
		return nil, fmt.Errorf("entry_id is required")
	}

	reply := s.handler.Handle(ctx, bot.Event{
		Kind:           bot.RemoveCallback,
		UserID:         params.UserID,
		ConversationID: params.ConversationID,
		EntryID:        params.EntryID,
	})
	return s.createJSONResponse(reply)
}
