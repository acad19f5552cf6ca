package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/provider"
)

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>ByteFit</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 15vh;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>`))

type resultView struct {
	Title   string
	Message string
}

// OAuthCallbackHandler hands the authorization response to the waiting login
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers query params and form_post bodies
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			cause := fmt.Errorf("authorization failed: %s - %s", errorParam, errorDesc)
			if provider.ErrorCode(errorParam).IsCancellation() {
				cause = fmt.Errorf("%w: %s", errors.ErrLoginCancelled, errorDesc)
			}
			s.receiver.Fail(state, cause)
			s.logError(r.Method, r.URL.Path, cause.Error())
			s.render(w, http.StatusBadRequest, resultView{Title: "Login failed", Message: cause.Error()})
			return
		}

		if code == "" || state == "" {
			s.render(w, http.StatusBadRequest, resultView{Title: "Login failed", Message: "Missing code or state parameter"})
			return
		}

		if err := s.receiver.Complete(r.Context(), state, code); err != nil {
			s.logError(r.Method, r.URL.Path, err.Error())
			status := http.StatusInternalServerError
			if errors.Is(err, errors.ErrInvalidState) || errors.Is(err, errors.ErrInvalidNonce) {
				status = http.StatusBadRequest
			}
			s.render(w, status, resultView{Title: "Login failed", Message: "The login could not be completed. Please try again."})
			return
		}

		s.render(w, http.StatusOK, resultView{Title: "You are logged in", Message: "You can close this window and return to ByteFit."})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) render(w http.ResponseWriter, status int, view resultView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := resultPage.Execute(w, view); err != nil {
		s.logger.Error().Err(err).Msg("failed to render result page")
	}
}
