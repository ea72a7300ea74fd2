package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"vendora/internal/adapter/api/middleware"
	ws "vendora/internal/infrastructure/websocket"
	"vendora/internal/usecase"
	"vendora/pkg/errors"
	"vendora/pkg/logger"
)

type WebSocketHandler struct {
	wsManager        *ws.Manager
	messagingUseCase *usecase.MessagingUseCase
	authMiddleware   *middleware.AuthMiddleware
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the web client's origin before launch
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, messagingUseCase *usecase.MessagingUseCase, authMiddleware *middleware.AuthMiddleware) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:        wsManager,
		messagingUseCase: messagingUseCase,
		authMiddleware:   authMiddleware,
	}
}

// HandleWebSocket upgrades the connection and starts the user's messaging
// session. The token arrives as a query parameter because browsers cannot
// set headers on websocket upgrades.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if authHeader := c.Request().Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := ws.NewClient(userID, conn)
	client.Session = h.messagingUseCase.NewSession(userID, client)

	h.wsManager.Register <- client

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	if err := client.Session.Start(client.Context()); err != nil {
		logger.Error("Failed to start messaging session for %s: %v", userID, err)
		client.StreamFailed(err)
	}

	return nil
}
