package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setTokenReq struct {
	Token string `json:"token"`
}

// account resolves the keychain entry of the source in the path. Only
// sources with a token_account send credentials, so others are rejected.
func (h SecretsHandler) account(w http.ResponseWriter, r *http.Request) (string, bool) {
	cfg := h.CfgVal.Load().(config.Config)
	sc, ok := cfg.FindSource(r.PathValue("name"))
	if !ok {
		WriteError(w, r, http.StatusNotFound, "unknown_source", "unknown source "+r.PathValue("name"))
		return "", false
	}
	if sc.TokenAccount == "" {
		WriteError(w, r, http.StatusConflict, "no_token_account",
			"source "+sc.Name+" has no token_account; set it to e.g. "+secrets.SourceAccount(sc.Name))
		return "", false
	}
	return sc.TokenAccount, true
}

func (h SecretsHandler) SetSourceToken(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}
	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_input", "token is required")
		return
	}
	if err := secrets.SetSourceToken(account, req.Token); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_failed", "failed to store token: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"account": account})
}

func (h SecretsHandler) DeleteSourceToken(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}
	if err := secrets.DeleteSourceToken(account); err != nil && !errors.Is(err, secrets.ErrEmptyAccount) {
		WriteError(w, r, http.StatusInternalServerError, "keyring_failed", "failed to delete token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
