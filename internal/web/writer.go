package web

import (
	"encoding/json"
	"net/http"
)

// writer helps writing unified responses
type writer struct {
	renderer          *renderer
	InternalErrorHook func(err error)
}

// WriteJSON writes the JSON representation of value using the given HTTP status code
func (writer *writer) WriteJSON(rw http.ResponseWriter, code int, value any) {
	val, err := json.Marshal(value)
	if err != nil {
		writer.InternalErrorHook(err)
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	rw.Write(val)
}

// WritePage renders a page using the given HTTP status code
func (writer *writer) WritePage(rw http.ResponseWriter, request *http.Request, code int, name string, data PageData) {
	body, err := writer.renderer.render(name, data)
	if err != nil {
		writer.WriteInternalError(rw, request, err)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.Header().Set("Cache-Control", "no-store")
	rw.WriteHeader(code)
	rw.Write(body)
}

// WriteErrorPage renders the generic error page
func (writer *writer) WriteErrorPage(rw http.ResponseWriter, request *http.Request, code int, message string) {
	body, err := writer.renderer.render("error.html", PageData{
		Title: http.StatusText(code),
		Data:  message,
	})
	if err != nil {
		writer.InternalErrorHook(err)
		http.Error(rw, message, code)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(code)
	rw.Write(body)
}

// WriteInternalError processes an internal server error and writes the error page
func (writer *writer) WriteInternalError(rw http.ResponseWriter, request *http.Request, err error) {
	writer.InternalErrorHook(err)
	writer.WriteErrorPage(rw, request, http.StatusInternalServerError, "An internal error occurred.")
}
