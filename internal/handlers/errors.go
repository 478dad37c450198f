package handlers

import (
	"net/http"

	"englishdrills/internal/logger"
)

func respondWithError(w http.ResponseWriter, log *logger.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			log.Error(logMsg, "status", status, "error", err)
		} else {
			log.Warn(logMsg, "status", status, "error", err)
		}
	}

	http.Error(w, userMsg, status)
}
