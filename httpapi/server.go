// Package httpapi exposes the REST surface of the core: the wallet
// handshake that issues session tokens, the validate/reward endpoints
// that share the socket path's state machine, room history paging, and
// the operational endpoints.
package httpapi

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"dchat/auth"
	"dchat/contract"
	"dchat/domain"
	apperrors "dchat/errors"
	"dchat/protocol"
	"dchat/services"
)

type Server struct {
	log        *slog.Logger
	users      contract.UserStore
	tokens     *auth.TokenIssuer
	validation *services.ValidationService
	dispatcher *services.MessageDispatcher
}

func NewServer(log *slog.Logger, users contract.UserStore, tokens *auth.TokenIssuer,
	validation *services.ValidationService, dispatcher *services.MessageDispatcher) *Server {
	return &Server{
		log:        log,
		users:      users,
		tokens:     tokens,
		validation: validation,
		dispatcher: dispatcher,
	}
}

// Router mounts all REST routes. The websocket endpoint is mounted by
// the caller on the same router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/session", s.handleHandshake).Methods(http.MethodPost)
	r.HandleFunc("/message/{id:[0-9]+}/validate", s.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/message/{id:[0-9]+}/reward", s.handleReward).Methods(http.MethodPost)
	r.HandleFunc("/room/{id:[0-9]+}/messages", s.handleRoomHistory).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type handshakeRequest struct {
	Wallet   string `json:"wallet"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type handshakeResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Wallet   string `json:"wallet"`
	Role     string `json:"role"`
	Balance  int64  `json:"tokenBalance"`
}

// handleHandshake creates the user on first wallet contact and returns
// a signed session token for the websocket connection. The wallet
// address is normalized once here and immutable afterwards.
func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var req handshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Wallet == "" || req.Username == "" {
		s.writeError(w, "handshake", apperrors.ErrInvalidInput)
		return
	}

	wallet, err := auth.NormalizeWallet(req.Wallet)
	if err != nil {
		s.writeError(w, "handshake", err)
		return
	}

	user, created, err := s.users.GetOrCreateByWallet(r.Context(), wallet, req.Username, req.Avatar)
	if err != nil {
		s.writeError(w, "handshake", err)
		return
	}
	if created {
		s.log.Info("User created on first wallet handshake", "user_id", user.ID)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		s.writeError(w, "handshake", err)
		return
	}

	s.writeJSON(w, http.StatusOK, handshakeResponse{
		Token: token,
		User: userPayload{
			ID:       int64(user.ID),
			Username: user.Username,
			Avatar:   user.Avatar,
			Wallet:   user.WalletAddress,
			Role:     string(user.Role),
			Balance:  user.TokenBalance,
		},
	})
}

type validateRequest struct {
	ValidatorID int64 `json:"validatorId"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(r)
	if !ok {
		s.writeError(w, "validate", apperrors.ErrInvalidInput)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ValidatorID == 0 {
		s.writeError(w, "validate", apperrors.ErrInvalidInput)
		return
	}

	message, err := s.validation.Validate(r.Context(), domain.MessageID(messageID), domain.UserID(req.ValidatorID))
	if err != nil {
		s.writeError(w, "validate", err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ToMessagePayload(message))
}

func (s *Server) handleReward(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(r)
	if !ok {
		s.writeError(w, "reward", apperrors.ErrInvalidInput)
		return
	}

	message, err := s.validation.Reward(r.Context(), domain.MessageID(messageID))
	if err != nil {
		s.writeError(w, "reward", err)
		return
	}
	s.writeJSON(w, http.StatusOK, protocol.ToMessagePayload(message))
}

type historyResponse struct {
	Messages []protocol.MessagePayload `json:"messages"`
	Cursor   *string                   `json:"cursor,omitempty"`
}

func (s *Server) handleRoomHistory(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r)
	if !ok {
		s.writeError(w, "history", apperrors.ErrInvalidInput)
		return
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.dispatcher.RoomHistory(r.Context(), domain.RoomID(roomID), cursor)
	if err != nil {
		s.writeError(w, "history", err)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{
		Messages: lo.Map(messages, func(m domain.Message, _ int) protocol.MessagePayload {
			return protocol.ToMessagePayload(m)
		}),
		Cursor: next,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Response encoding failed", "error", err)
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	classified := apperrors.Classify(err)
	status := statusOf(classified)
	if goerrors.Is(classified, apperrors.ErrUnavailable) {
		s.log.Error("Request failed", "operation", operation, "error", err)
		s.writeJSON(w, status, errorResponse{Message: "service unavailable, please retry"})
		return
	}
	s.writeJSON(w, status, errorResponse{Message: err.Error()})
}

func statusOf(classified error) int {
	switch {
	case goerrors.Is(classified, apperrors.ErrNotFound):
		return http.StatusNotFound
	case goerrors.Is(classified, apperrors.ErrForbidden):
		return http.StatusForbidden
	case goerrors.Is(classified, apperrors.ErrConflict):
		return http.StatusConflict
	case goerrors.Is(classified, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}
