/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package httpserver

import (
	"net/http"
)

type (
	ApiServerFunc struct {
		F          func(http.ResponseWriter, *http.Request)
		MoreUsages []string
	}
)

// RegisterApiHandleFunc binds handler to pattern once. Later registrations of the same pattern are ignored.
func (h *HttpServerComponent) RegisterApiHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request), additionalUsages ...string) {
	h.apiMu.Lock()
	if _, exist := h.apis[pattern]; !exist {
		h.apis[pattern] = ApiServerFunc{
			F:          handler,
			MoreUsages: additionalUsages,
		}
		h.mux.HandleFunc(pattern, handler)
	}
	h.apiMu.Unlock()
}
