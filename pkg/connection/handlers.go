package connection

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fedbridge/fedbridge/pkg/httputil"
)

// Handlers exposes the controller over HTTP. The modern surface lives under
// /api/v1/connections and wraps responses in the data/error envelope; the
// legacy surface under /api/v1/saml/config returns bare payloads as the old
// API did.
type Handlers struct {
	ctrl *Controller
}

// NewHandlers creates the HTTP layer for ctrl.
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

// RegisterRoutes attaches all connection endpoints to router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/connections", h.createConnection).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/connections", h.getConnections).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/connections", h.updateConnection).Methods(http.MethodPatch)
	router.HandleFunc("/api/v1/connections", h.deleteConnections).Methods(http.MethodDelete)

	router.HandleFunc("/api/v1/saml/config", h.createConfig).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/saml/config", h.getConfig).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/saml/config", h.updateConfig).Methods(http.MethodPatch)
	router.HandleFunc("/api/v1/saml/config", h.deleteConfig).Methods(http.MethodDelete)
}

// writeError renders controller errors in the envelope. Anything that is
// not an ApiError is an internal failure and stays opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		httputil.WriteErrorMessage(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	httputil.WriteInternalError(w)
}

func (h *Handlers) createConnection(w http.ResponseWriter, r *http.Request) {
	var req BootstrapConnection
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var (
		conn *Connection
		err  error
	)
	if req.isOIDC() {
		conn, err = h.ctrl.CreateOIDCConnection(r.Context(), &CreateOIDCConnectionParams{
			Tenant:             req.Tenant,
			Product:            req.Product,
			Name:               req.Name,
			Description:        req.Description,
			DefaultRedirectURL: req.DefaultRedirectURL,
			RedirectURL:        req.RedirectURL,
			OIDCDiscoveryURL:   req.OIDCDiscoveryURL,
			OIDCIssuer:         req.OIDCIssuer,
			OIDCClientID:       req.OIDCClientID,
			OIDCClientSecret:   req.OIDCClientSecret,
			ForceAuthn:         req.ForceAuthn,
		})
	} else {
		conn, err = h.ctrl.CreateSAMLConnection(r.Context(), &CreateSAMLConnectionParams{
			Tenant:             req.Tenant,
			Product:            req.Product,
			Name:               req.Name,
			Description:        req.Description,
			DefaultRedirectURL: req.DefaultRedirectURL,
			RedirectURL:        req.RedirectURL,
			RawMetadata:        req.RawMetadata,
			EncodedRawMetadata: req.EncodedRawMetadata,
			ForceAuthn:         req.ForceAuthn,
		})
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteCreated(w, conn)
}

func (h *Handlers) getConnections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	conns, err := h.ctrl.GetConnections(r.Context(), &GetConnectionsParams{
		ClientID: query.Get("clientID"),
		Tenant:   query.Get("tenant"),
		Product:  query.Get("product"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, conns)
}

// updateConnectionRequest is the union body for PATCH: requests carrying
// OIDC provider fields go to the OIDC update path, everything else to SAML.
type updateConnectionRequest struct {
	UpdateOIDCConnectionParams
	RawMetadata        string `json:"rawMetadata,omitempty"`
	EncodedRawMetadata string `json:"encodedRawMetadata,omitempty"`
}

func (req *updateConnectionRequest) isOIDC() bool {
	return req.OIDCDiscoveryURL != "" || req.OIDCIssuer != "" ||
		req.OIDCClientID != "" || req.OIDCClientSecret != ""
}

func (h *Handlers) updateConnection(w http.ResponseWriter, r *http.Request) {
	var req updateConnectionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var (
		conn *Connection
		err  error
	)
	if req.isOIDC() {
		conn, err = h.ctrl.UpdateOIDCConnection(r.Context(), &req.UpdateOIDCConnectionParams)
	} else {
		conn, err = h.ctrl.UpdateSAMLConnection(r.Context(), &UpdateSAMLConnectionParams{
			ClientID:           req.ClientID,
			ClientSecret:       req.ClientSecret,
			Tenant:             req.Tenant,
			Product:            req.Product,
			Name:               req.Name,
			Description:        req.Description,
			DefaultRedirectURL: req.DefaultRedirectURL,
			RedirectURL:        req.RedirectURL,
			RawMetadata:        req.RawMetadata,
			EncodedRawMetadata: req.EncodedRawMetadata,
			ForceAuthn:         req.ForceAuthn,
		})
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, conn)
}

func (h *Handlers) deleteConnections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := DeleteConnectionsParams{
		ClientID:     query.Get("clientID"),
		ClientSecret: query.Get("clientSecret"),
		Tenant:       query.Get("tenant"),
		Product:      query.Get("product"),
	}
	if params == (DeleteConnectionsParams{}) && r.Body != nil {
		// querystring empty, fall back to a JSON body
		json.NewDecoder(r.Body).Decode(&params)
	}

	if err := h.ctrl.DeleteConnections(r.Context(), &params); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, nil)
}

func (h *Handlers) createConfig(w http.ResponseWriter, r *http.Request) {
	var params ConfigParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}
	resp, err := h.ctrl.Config(r.Context(), &params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLegacyJSON(w, resp)
}

func (h *Handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp, err := h.ctrl.GetConfig(r.Context(), &GetConnectionsParams{
		ClientID: query.Get("clientID"),
		Tenant:   query.Get("tenant"),
		Product:  query.Get("product"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeLegacyJSON(w, resp)
}

func (h *Handlers) updateConfig(w http.ResponseWriter, r *http.Request) {
	var params UpdateSAMLConnectionParams
	if !httputil.ParseJSONOrError(w, r, &params) {
		return
	}
	if err := h.ctrl.UpdateConfig(r.Context(), &params); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) deleteConfig(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := DeleteConnectionsParams{
		ClientID:     query.Get("clientID"),
		ClientSecret: query.Get("clientSecret"),
		Tenant:       query.Get("tenant"),
		Product:      query.Get("product"),
	}
	if params == (DeleteConnectionsParams{}) && r.Body != nil {
		json.NewDecoder(r.Body).Decode(&params)
	}

	if err := h.ctrl.DeleteConfig(r.Context(), &params); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// writeLegacyJSON writes a bare JSON payload, the shape the pre-envelope
// config API exposed.
func writeLegacyJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload)
}
