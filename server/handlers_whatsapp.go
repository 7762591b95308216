package server

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/clientmanager"
)

// ConnectHandler acquires (or creates) the tenant's messaging session and
// returns its status. While authentication is pending the response carries
// the scannable credential.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.manager.Acquire(r.Context(), tenantID(r))
		if err != nil {
			s.writeAcquireError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// QRHandler acquires the tenant's session and returns just the scannable
// credential, for the polling connect flow.
func (s *Server) QRHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.manager.Acquire(r.Context(), tenantID(r))
		if err != nil {
			s.writeAcquireError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"qr": status.QRPayload})
	}
}

// StatusHandler is a pure read of the tenant's session state. It never
// triggers a session creation.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.manager.Status(tenantID(r)))
	}
}

// DisconnectHandler tears the tenant's session down and clears the persisted
// credential.
func (s *Server) DisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := tenantID(r)
		if s.manager.Status(tenant).State == clientmanager.StateDisconnected {
			writeError(w, http.StatusNotFound, "no active session found")
			return
		}
		if err := s.manager.Release(r.Context(), tenant); err != nil {
			s.logger.Error().Err(err).Str("tenant", tenant).Msg("releasing session")
			writeError(w, http.StatusInternalServerError, "failed to disconnect")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "disconnected successfully"})
	}
}

func (s *Server) writeAcquireError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clientmanager.ErrAuthenticationFailure):
		writeError(w, http.StatusUnauthorized, "authentication with the messaging network failed; reconnect to retry")
	case errors.Is(err, clientmanager.ErrInitializationTimeout):
		writeError(w, http.StatusGatewayTimeout, "session initialization timed out; reconnect to retry")
	default:
		writeError(w, http.StatusBadGateway, "could not establish session")
	}
}
