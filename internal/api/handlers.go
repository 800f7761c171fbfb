package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"datamart/internal/domain"
	"datamart/internal/query"
)

const maxBodyBytes = 1 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// token implements the OAuth2 password flow: form fields username and password.
func (h *handler) token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, domain.ErrValidation("invalid form body"))
		return
	}

	tok, err := h.deps.Auth.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (h *handler) product(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Products.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) kpis(w http.ResponseWriter, r *http.Request) {
	k, err := h.deps.KPIs.General(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, domain.ErrValidation("invalid request body: %s", err.Error()))
		return
	}

	rows, err := h.deps.Query.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
