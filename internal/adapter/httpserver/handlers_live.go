package httpserver

import (
	"net/http"

	"github.com/centrifugal/centrifuge"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerLiveRoutes() {
	if s.websocketHandler == nil {
		return
	}
	s.echo.GET("/connection/websocket", s.handleLiveFeed)
}

// handleLiveFeed hands the connection to Centrifuge with the session user as
// credentials. Role checks happen in the node's connect handler.
func (s *Server) handleLiveFeed(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	userID, ok := session.Values[sessionKeyUserID].(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	cred := &centrifuge.Credentials{UserID: userID}
	r := c.Request().WithContext(centrifuge.SetCredentials(c.Request().Context(), cred))

	s.websocketHandler.ServeHTTP(c.Response(), r)
	return nil
}
