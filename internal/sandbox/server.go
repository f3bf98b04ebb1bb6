package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of records per query page.
const DefaultBatchSize = 2000

// Credentials are the only credentials the token endpoint accepts.
// Password includes any security token suffix.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Server is the sandbox HTTP API.
type Server struct {
	store     *Store
	creds     Credentials
	now       func() time.Time
	batchSize int
	logger    *slog.Logger

	mu      sync.Mutex
	cursors map[string]cursor
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the time source used for token issue times.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithBatchSize sets the query page size.
func WithBatchSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a sandbox over store.
func NewServer(store *Store, creds Credentials, opts ...Option) *Server {
	s := &Server{
		store:     store,
		creds:     creds,
		now:       time.Now,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		cursors:   map[string]cursor{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /services/oauth2/token", s.handleToken)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.authenticated(h))
	}
	api("GET /services/data/{version}", s.handleVersion)
	api("GET /services/data/{version}/query/{$}", s.handleQuery)
	api("GET /services/data/{version}/query/{locator}", s.handleQueryMore)
	api("POST /services/data/{version}/sobjects/{type}/{$}", s.handleCreate)
	api("GET /services/data/{version}/sobjects/{type}/describe", s.handleDescribe)
	api("GET /services/data/{version}/sobjects/{type}/{id}", s.handleRetrieve)
	api("POST /services/data/{version}/sobjects/{type}/{id}", s.handleUpdate)
	api("PATCH /services/data/{version}/sobjects/{type}/{id}", s.handleUpdate)
	api("POST /services/data/{version}/sobjects/{type}/{id}/password", s.handlePassword)

	return s.logged(mux)
}

// ExpireSessions revokes every issued token. Requests bearing them get 401
// until the client obtains a new token.
func (s *Server) ExpireSessions(ctx context.Context) error {
	n, err := s.store.RevokeSessions(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("sandbox sessions expired", "count", n)
	return nil
}

// apiError is one entry of an error response.
type apiError struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	writeJSON(w, status, errs)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("sandbox request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ok {
			valid, err := s.store.SessionValid(r.Context(), token)
			if err != nil {
				writeErrors(w, http.StatusInternalServerError, apiError{Message: err.Error(), ErrorCode: "UNKNOWN_EXCEPTION"})
				return
			}
			ok = valid
		}
		if !ok {
			writeErrors(w, http.StatusUnauthorized, apiError{Message: "Session expired or invalid", ErrorCode: "INVALID_SESSION_ID"})
			return
		}
		next(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "error_description": err.Error()})
		return
	}
	form := r.PostForm
	if form.Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type", "error_description": "grant type not supported"})
		return
	}
	if form.Get("client_id") != s.creds.ClientID || form.Get("client_secret") != s.creds.ClientSecret {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client_id", "error_description": "client identifier invalid"})
		return
	}
	if form.Get("username") != s.creds.Username || form.Get("password") != s.creds.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "authentication failure"})
		return
	}

	issuedMillis := s.now().UnixMilli()
	issuedAt := strconv.FormatInt(issuedMillis, 10)
	token := "00D" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.store.CreateSession(r.Context(), token, issuedMillis); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error", "error_description": err.Error()})
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	instanceURL := scheme + "://" + r.Host
	id := instanceURL + "/id/00D000000000001/005000000000001"

	mac := hmac.New(sha256.New, []byte(s.creds.ClientSecret))
	mac.Write([]byte(id + issuedAt))

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"instance_url": instanceURL,
		"id":           id,
		"token_type":   "Bearer",
		"issued_at":    issuedAt,
		"signature":    base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	base := "/services/data/" + r.PathValue("version")
	writeJSON(w, http.StatusOK, map[string]string{
		"query":    base + "/query",
		"sobjects": base + "/sobjects",
	})
}

// objectType checks the {type} path segment. Only User exists.
func objectType(w http.ResponseWriter, r *http.Request) bool {
	if !strings.EqualFold(r.PathValue("type"), userTable) {
		writeErrors(w, http.StatusNotFound, apiError{Message: "The requested resource does not exist", ErrorCode: "NOT_FOUND"})
		return false
	}
	return true
}

func (s *Server) recordURL(r *http.Request, id any) string {
	return fmt.Sprintf("/services/data/%s/sobjects/%s/%v", r.PathValue("version"), userTable, id)
}

// decodeFields reads a JSON object of scalar field values.
func decodeFields(r *http.Request) (map[string]any, *apiError) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, &apiError{Message: err.Error(), ErrorCode: "JSON_PARSER_ERROR"}
	}
	for name, v := range fields {
		switch v.(type) {
		case nil, string, float64, bool:
		default:
			return nil, &apiError{
				Message:   fmt.Sprintf("Cannot deserialize value of field %s", name),
				ErrorCode: "JSON_PARSER_ERROR",
				Fields:    []string{name},
			}
		}
		if strings.EqualFold(name, "Id") {
			return nil, &apiError{
				Message:   "Unable to create/update fields: Id",
				ErrorCode: "INVALID_FIELD_FOR_INSERT_UPDATE",
				Fields:    []string{name},
			}
		}
	}
	return fields, nil
}

// storeError writes the response for a store failure.
func storeError(w http.ResponseWriter, err error) {
	var fe *FieldError
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		writeErrors(w, http.StatusBadRequest, apiError{
			Message:   "Duplicate Username.<br>The username already exists in this or another Salesforce organization.",
			ErrorCode: "DUPLICATE_USERNAME",
			Fields:    []string{"Username"},
		})
	case errors.Is(err, ErrNotFound):
		writeErrors(w, http.StatusNotFound, apiError{Message: "Provided external ID field does not exist or is not accessible", ErrorCode: "NOT_FOUND"})
	case errors.As(err, &fe):
		writeErrors(w, http.StatusBadRequest, apiError{Message: fe.Error(), ErrorCode: "INVALID_FIELD", Fields: []string{fe.Field}})
	default:
		writeErrors(w, http.StatusBadRequest, apiError{Message: err.Error(), ErrorCode: "MALFORMED_QUERY"})
	}
}

// newRecordID returns an 18 character id with the User key prefix.
func newRecordID() string {
	hex := strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
	return "005" + strings.ToUpper(hex[17:])
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !objectType(w, r) {
		return
	}
	fields, apiErr := decodeFields(r)
	if apiErr != nil {
		writeErrors(w, http.StatusBadRequest, *apiErr)
		return
	}
	if name, _ := fields["Username"].(string); name == "" {
		writeErrors(w, http.StatusBadRequest, apiError{
			Message:   "Required fields are missing: [Username]",
			ErrorCode: "REQUIRED_FIELD_MISSING",
			Fields:    []string{"Username"},
		})
		return
	}

	id := newRecordID()
	if err := s.store.InsertUser(r.Context(), id, fields); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "success": true, "errors": []any{}})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !objectType(w, r) {
		return
	}
	if r.Method == http.MethodPost && r.URL.Query().Get("_HttpMethod") != http.MethodPatch {
		writeErrors(w, http.StatusMethodNotAllowed, apiError{Message: "HTTP Method 'POST' not allowed. Allowed are GET,PATCH", ErrorCode: "METHOD_NOT_ALLOWED"})
		return
	}
	fields, apiErr := decodeFields(r)
	if apiErr != nil {
		writeErrors(w, http.StatusBadRequest, *apiErr)
		return
	}
	if err := s.store.UpdateUser(r.Context(), r.PathValue("id"), fields); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// minPasswordLength mirrors the default org password policy.
const minPasswordLength = 8

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	if !objectType(w, r) {
		return
	}
	var body struct {
		NewPassword *string `json:"NewPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewPassword == nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: "NewPassword is required", ErrorCode: "JSON_PARSER_ERROR"})
		return
	}
	if len(*body.NewPassword) < minPasswordLength {
		writeErrors(w, http.StatusBadRequest, apiError{
			Message:   fmt.Sprintf("Your password must be at least %d characters long.", minPasswordLength),
			ErrorCode: "INVALID_NEW_PASSWORD",
		})
		return
	}
	if err := s.store.SetPassword(r.Context(), r.PathValue("id"), *body.NewPassword); err != nil {
		storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if !objectType(w, r) {
		return
	}
	cols, err := s.store.Columns(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	records, err := s.store.Select(r.Context(), names, `"Id" = '`+strings.ReplaceAll(r.PathValue("id"), "'", "''")+`'`)
	if err != nil {
		storeError(w, err)
		return
	}
	if len(records) == 0 {
		storeError(w, ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.withAttributes(r, records[0]))
}

func (s *Server) withAttributes(r *http.Request, record map[string]any) map[string]any {
	attrs := map[string]any{"type": userTable}
	if id, ok := record["Id"]; ok {
		attrs["url"] = s.recordURL(r, id)
	}
	record["attributes"] = attrs
	return record
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if !objectType(w, r) {
		return
	}
	cols, err := s.store.Columns(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}

	fields := make([]map[string]any, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, map[string]any{
			"name":       c.Name,
			"type":       remoteType(c),
			"nillable":   !c.NotNull || c.Default,
			"createable": !c.Primary,
			"updateable": !c.Primary,
			"idLookup":   c.Primary || c.Name == "Username",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       userTable,
		"createable": true,
		"updateable": true,
		"deletable":  false,
		"searchable": true,
		"queryable":  true,
		"fields":     fields,
	})
}

// remoteType maps a column to the describe field type.
func remoteType(c Column) string {
	switch {
	case c.Primary:
		return "id"
	case c.Name == "Email":
		return "email"
	}
	switch strings.ToUpper(c.Type) {
	case "INTEGER":
		return "int"
	case "BOOLEAN":
		return "boolean"
	case "BLOB":
		return "base64"
	default:
		return "string"
	}
}
