package httpx

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	Detail(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	Detail(w, r, status, http.StatusText(status))
}

// Will send the JSON body {"detail": msg} with the given status
func Detail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": msg})
}

// Will map a service error to its HTTP status:
// validation 400, access denied 403, not found 404, anything else 500.
// Only the 500s are logged at error level, and their message is not sent.
func WriteError(w http.ResponseWriter, r *http.Request, code string, err error) {
	switch {
	case model.IsValidation(err):
		log.Debugf("%s: %s", code, err)
		Detail(w, r, http.StatusBadRequest, err.Error())
	case model.IsDenied(err):
		log.Debugf("%s: %s", code, err)
		Detail(w, r, http.StatusForbidden, err.Error())
	case model.IsNotFound(err):
		log.Debugf("%s: %s", code, err)
		Detail(w, r, http.StatusNotFound, "Not found.")
	case model.IsIntegrity(err):
		log.WithFields(log.Fields{"code": code}).Errorf("ordering integrity: %s", err)
		Detail(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	default:
		LogInternalError(w, r, code, err)
	}
}
