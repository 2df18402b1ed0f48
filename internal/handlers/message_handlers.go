package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"idea-pond/internal/engine/actors"
	"idea-pond/internal/middleware"
	"idea-pond/internal/models"
	"idea-pond/internal/utils"
)

// SendMessageRequest represents a request to send a direct message
type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
	TopicID     string `json:"topicId,omitempty"`
}

// MarkReadRequest advances the caller's read cursor for a conversation
type MarkReadRequest struct {
	ConversationID string    `json:"conversationId"`
	Through        time.Time `json:"through"`
}

// ConversationResponse bundles the summary record with its message history
type ConversationResponse struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []*models.Message    `json:"messages"`
}

// respondJSON writes a JSON response body
func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// respondActorResult maps an actor reply (result or *utils.AppError) onto the
// HTTP response.
func (s *Server) respondActorResult(w http.ResponseWriter, result any) {
	if appErr, ok := result.(*utils.AppError); ok {
		s.Metrics.IncrementErrors()
		http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
		return
	}
	respondJSON(w, result)
}

// callerID extracts the authenticated user from the request context.
func callerID(r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}

// HandleSendMessage sends a direct message to another user.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		senderID, ok := callerID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		msg := &actors.SendMessageMsg{
			SenderID:    senderID,
			RecipientID: req.RecipientID,
			TopicID:     req.TopicID,
			Text:        req.Text,
		}

		future := s.Context.RequestFuture(s.Engine.GetMessageActor(), msg, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to send message", http.StatusInternalServerError)
			return
		}

		s.respondActorResult(w, result)
	}
}

// HandleConversation opens a conversation view: lazily ensures the summary
// record and returns it together with the message history.
func (s *Server) HandleConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := callerID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		peerID := r.URL.Query().Get("peerId")
		if peerID == "" {
			http.Error(w, "peerId required", http.StatusBadRequest)
			return
		}

		ensureMsg := &actors.EnsureConversationMsg{
			CallerID: userID,
			PeerID:   peerID,
			TopicID:  r.URL.Query().Get("topicId"),
		}
		future := s.Context.RequestFuture(s.Engine.GetConversationActor(), ensureMsg, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to open conversation", http.StatusInternalServerError)
			return
		}
		conversation, ok := result.(*models.Conversation)
		if !ok {
			s.respondActorResult(w, result)
			return
		}

		getMsg := &actors.GetMessagesMsg{
			ConversationID: conversation.ID,
			CallerID:       userID,
		}
		future = s.Context.RequestFuture(s.Engine.GetMessageActor(), getMsg, s.RequestTimeout)
		result, err = future.Result()
		if err != nil {
			http.Error(w, "Failed to load messages", http.StatusInternalServerError)
			return
		}
		messages, ok := result.([]*models.Message)
		if !ok {
			s.respondActorResult(w, result)
			return
		}

		respondJSON(w, &ConversationResponse{
			Conversation: conversation,
			Messages:     messages,
		})
	}
}

// HandleMarkRead advances the caller's read cursor. Backward moves are no-ops.
func (s *Server) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := callerID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ConversationID == "" || req.Through.IsZero() {
			http.Error(w, "conversationId and through required", http.StatusBadRequest)
			return
		}

		msg := &actors.MarkReadMsg{
			ConversationID: req.ConversationID,
			CallerID:       userID,
			Through:        req.Through,
		}

		future := s.Context.RequestFuture(s.Engine.GetConversationActor(), msg, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to mark read", http.StatusInternalServerError)
			return
		}

		if success, ok := result.(bool); ok {
			respondJSON(w, map[string]bool{"success": success})
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleInbox lists the caller's conversations ordered by recency, each row
// joined with the peer's display identity and the unread flag.
func (s *Server) HandleInbox() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := callerID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetInboxActor(), &actors.ListInboxMsg{UserID: userID}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to load inbox", http.StatusInternalServerError)
			return
		}

		s.respondActorResult(w, result)
	}
}

// HandleUnreadCount returns the caller's global unread conversation count.
func (s *Server) HandleUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := callerID(r)
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetInboxActor(), &actors.UnreadCountMsg{UserID: userID}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to compute unread count", http.StatusInternalServerError)
			return
		}

		if count, ok := result.(int); ok {
			respondJSON(w, map[string]int{"unreadCount": count})
			return
		}
		s.respondActorResult(w, result)
	}
}
