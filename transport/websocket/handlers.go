package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	actionCheckURL     = "checkUrl"
	actionSendTurnData = "sendTurnData"
)

func (that *Server) handleCheckURL(ctx context.Context, connectionID string, payload json.RawMessage) error {
	var payloadReq CheckURLPayload

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &payloadReq); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	// The client sends its address-bar path; the token is the path without
	// the leading separator.
	token := strings.TrimPrefix(strings.TrimSpace(payloadReq.Room), "/")

	if err := that.coord.RequestJoin(ctx, connectionID, token); err != nil {
		return fmt.Errorf("failed to process join request: %w", err)
	}

	return nil
}

func (that *Server) handleSendTurnData(ctx context.Context, connectionID string, payload json.RawMessage) error {
	var payloadReq TurnDataPayload

	if err := json.Unmarshal(payload, &payloadReq); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.coord.RelayTurn(ctx, connectionID, payloadReq.Board, payloadReq.NextTurn, payloadReq.WinLine); err != nil {
		return fmt.Errorf("failed to relay turn: %w", err)
	}

	return nil
}
