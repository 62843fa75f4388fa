package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	common "github.com/coffeechess/coordinator/pkg/domain"
	chessgame_in "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/in"
)

// RoomController exposes the discovery operations of spec §6's message
// catalog (listRooms, getRoomInfo) as REST handlers alongside their
// websocket equivalents in the Event Gateway's dispatch table. Backed by
// the same RoomQueries port, so a listing or lookup reflects exactly the
// same Coordinator state a websocket client would see.
type RoomController struct {
	queries chessgame_in.RoomQueries
}

func NewRoomController(queries chessgame_in.RoomQueries) *RoomController {
	return &RoomController{queries: queries}
}

// ListRooms handles GET /rooms: the open-room listing endpoint.
func (rc *RoomController) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := rc.queries.ListOpenRooms(r.Context())

	if gameIDStr := r.URL.Query().Get("game_id"); gameIDStr != "" {
		gameID, err := strconv.ParseInt(gameIDStr, 10, 64)
		if err != nil {
			common.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "game_id must be an integer", "")
			return
		}
		filtered := make([]chessgame_in.RoomSummary, 0, len(rooms))
		for _, room := range rooms {
			if room.GameID == gameID {
				filtered = append(filtered, room)
			}
		}
		rooms = filtered
	}

	common.WriteSuccess(w, rooms)
}

// RoomInfo handles GET /rooms/{room_id}: a full snapshot of one room,
// the REST mirror of the getRoomInfo websocket message.
func (rc *RoomController) RoomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room_id"]
	if roomID == "" {
		common.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "room_id is required", "")
		return
	}

	snapshot, err := rc.queries.GetRoomInfo(r.Context(), roomID)
	if err != nil {
		slog.Warn("RoomInfo: lookup failed", "room_id", roomID, "error", err)
		common.WriteErrorFromDomainError(w, err)
		return
	}

	common.WriteSuccess(w, snapshot)
}
