package middleware

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON error body every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

func HandleError(resp *restful.Response, err error, status int) {
	if werr := resp.WriteHeaderAndEntity(status, ErrorResponse{Error: err.Error()}); werr != nil {
		log.Error().Err(werr).Msg("writing error response failed")
	}
}

// Logger logs one line per request with method, path, status and
// duration.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	log.Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("request")
}

// RecoverPanic converts handler panics into 500 responses.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("path", req.Request.URL.Path).
				Msg("handler panicked")
			if err := resp.WriteHeaderAndEntity(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}); err != nil {
				log.Error().Err(err).Msg("writing panic response failed")
			}
		}
	}()
	chain.ProcessFilter(req, resp)
}
