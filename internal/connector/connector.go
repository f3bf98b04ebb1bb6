package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/roach88/sfconnect/internal/auth"
	"github.com/roach88/sfconnect/internal/config"
	"github.com/roach88/sfconnect/internal/filter"
	"github.com/roach88/sfconnect/internal/gateway"
	"github.com/roach88/sfconnect/internal/mapping"
	"github.com/roach88/sfconnect/internal/soql"
)

// Handler receives search results. Returning false stops the search.
type Handler func(obj mapping.Object) bool

// Connector manages users of one remote object type.
//
// Connector is safe for concurrent use.
type Connector struct {
	cfg      config.Config
	columns  *mapping.Columns
	compiler *soql.Compiler
	gateway  *gateway.Gateway
	logger   *slog.Logger

	mu   sync.RWMutex
	info *mapping.ObjectInfo
}

type options struct {
	client       *http.Client
	source       auth.Source
	ids          gateway.IDGenerator
	logger       *slog.Logger
	compilerOpts []soql.CompilerOption
}

// Option configures a Connector.
type Option func(*options)

// WithHTTPClient sets the client used for both token exchanges and API
// calls. It replaces the client built from the trust store setting.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTokenSource replaces the password grant built from the config.
func WithTokenSource(source auth.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithIDGenerator sets the generator for per-call request ids.
func WithIDGenerator(ids gateway.IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithLogger sets the logger shared by the connector, session and gateway.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCompilerOptions passes options to the filter compiler.
func WithCompilerOptions(opts ...soql.CompilerOption) Option {
	return func(o *options) {
		o.compilerOpts = append(o.compilerOpts, opts...)
	}
}

// New builds a connector and acquires the first access token. A failed
// token exchange is returned as an *auth.RefreshError.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Connector, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.client == nil {
		client, err := cfg.HTTPClient()
		if err != nil {
			return nil, err
		}
		o.client = client
	}
	if o.source == nil {
		o.source = auth.NewPasswordSource(cfg.Credentials(), auth.WithHTTPClient(o.client))
	}

	session := auth.NewSession(o.source,
		auth.WithLogger(o.logger),
		auth.WithLoginURL(cfg.LoginURL))
	if err := session.Reconnect(ctx); err != nil {
		return nil, err
	}

	gwOpts := []gateway.Option{gateway.WithHTTPClient(o.client), gateway.WithLogger(o.logger)}
	if o.ids != nil {
		gwOpts = append(gwOpts, gateway.WithIDGenerator(o.ids))
	}

	columns := mapping.NewColumns(cfg.Layout())
	return &Connector{
		cfg:      cfg,
		columns:  columns,
		compiler: soql.NewCompiler(columns, o.compilerOpts...),
		gateway:  gateway.New(session, gwOpts...),
		logger:   o.logger,
	}, nil
}

// Columns returns the attribute to column resolver.
func (c *Connector) Columns() *mapping.Columns {
	return c.columns
}

// Reconnect discards the current token and performs a fresh exchange.
// It clears a session broken by an earlier refresh failure.
func (c *Connector) Reconnect(ctx context.Context) error {
	return c.gateway.Session().Reconnect(ctx)
}

// Translate compiles f with the connector's column types.
func (c *Connector) Translate(f filter.Filter) soql.Translation {
	return c.compiler.Translate(f)
}

// Create creates a user and returns its id. A password attribute is set
// through a second call after the record exists.
func (c *Connector) Create(ctx context.Context, attrs mapping.Attributes) (string, error) {
	const op = "create"
	if err := c.allow(op, func(o mapping.ObjectInfo) bool { return o.Createable }); err != nil {
		return "", err
	}
	if _, ok := attrs.Lookup(mapping.NameAttribute); !ok {
		return "", &Error{Code: ErrCodeInvalidAttributes, Op: op, Message: "missing " + mapping.NameAttribute}
	}
	body, err := c.columns.ToBody(attrs)
	if err != nil {
		return "", newError(ErrCodeInvalidAttributes, op, err)
	}

	var uid string
	err = c.gateway.Post(ctx, c.cfg.ObjectServicePath(), body.Fields,
		func(data []byte) error {
			var res saveResult
			if err := json.Unmarshal(data, &res); err != nil {
				return newError(ErrCodeOperationFailed, op, fmt.Errorf("decode response: %w", err))
			}
			c.logger.Info("create result", "success", res.Success, "errors", len(res.Errors), "id", res.ID)
			if !res.Success {
				code := ErrCodeOperationFailed
				if res.hasError(duplicateUsername) {
					code = ErrCodeAlreadyExists
				}
				return &Error{Code: code, Op: op, RemoteCode: res.firstCode()}
			}
			uid = res.ID
			return nil
		},
		func(reqErr *gateway.RequestError) error {
			for _, apiErr := range reqErr.APIErrors {
				c.logger.Info("create error", "message", apiErr.Message, "error_code", apiErr.ErrorCode)
			}
			return remoteError(op, reqErr, duplicateUsername)
		})
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", &Error{Code: ErrCodeOperationFailed, Op: op, Message: "response carried no id"}
	}

	if body.Password != nil {
		if err := c.setPassword(ctx, uid, *body.Password); err != nil {
			return uid, err
		}
	}
	return uid, nil
}

// Update replaces the given attributes of a user and returns its id.
func (c *Connector) Update(ctx context.Context, uid string, attrs mapping.Attributes) (string, error) {
	const op = "update"
	if err := c.allow(op, func(o mapping.ObjectInfo) bool { return o.Updateable }); err != nil {
		return "", err
	}
	body, err := c.columns.ToBody(attrs)
	if err != nil {
		return "", newError(ErrCodeInvalidAttributes, op, err)
	}

	if len(body.Fields) > 0 {
		if err := c.patch(ctx, op, uid, body.Fields); err != nil {
			return "", err
		}
	}
	if body.Password != nil {
		if err := c.setPassword(ctx, uid, *body.Password); err != nil {
			return uid, err
		}
	}
	return uid, nil
}

// Delete deactivates a user. Users cannot be removed remotely, so the
// active column is set to false instead.
func (c *Connector) Delete(ctx context.Context, uid string) error {
	const op = "delete"
	if err := c.allow(op, func(o mapping.ObjectInfo) bool { return o.Updateable }); err != nil {
		return err
	}
	return c.patch(ctx, op, uid, map[string]any{c.cfg.ActiveAttribute: false})
}

// Search runs f remotely and passes every matching record to handler,
// following result pages until the remote reports done. When only part of
// f can be compiled, the wider remote result is narrowed client-side.
func (c *Connector) Search(ctx context.Context, f filter.Filter, attrsToGet []string, handler Handler) error {
	const op = "search"
	if err := c.allow(op, func(o mapping.ObjectInfo) bool { return o.Searchable }); err != nil {
		return err
	}

	tr := c.compiler.Translate(f)
	wanted := attrsToGet
	if !tr.Complete {
		wanted = append(append([]string(nil), attrsToGet...), filter.Attributes(f)...)
	}
	query, err := soql.BuildQuery(c.cfg.ObjectType, c.columns.AttributesToGet(wanted), tr.Where)
	if err != nil {
		return newError(ErrCodeInvalidAttributes, op, err)
	}
	c.logger.Info("soql query", "query", query, "complete", tr.Complete)

	path := c.cfg.QueryServicePath() + soql.EncodeQuery(query)
	for path != "" {
		var page queryPage
		err := c.gateway.Get(ctx, path,
			func(data []byte) error {
				if err := json.Unmarshal(data, &page); err != nil {
					return newError(ErrCodeOperationFailed, op, fmt.Errorf("decode response: %w", err))
				}
				return nil
			},
			func(reqErr *gateway.RequestError) error {
				return remoteError(op, reqErr, "")
			})
		if err != nil {
			return err
		}
		c.logger.Info("query result", "total_size", page.TotalSize, "done", page.Done, "records", len(page.Records))

		for _, record := range page.Records {
			obj := c.columns.ToObject(record)
			if !tr.Complete && !filter.Matches(f, c.columns.Lookup(obj)) {
				continue
			}
			if !handler(obj) {
				return nil
			}
		}

		path = ""
		if !page.Done {
			path = page.NextRecordsURL
		}
	}
	return nil
}

// Schema fetches the describe metadata of the object type. The declared
// field types are installed into the column resolver, so later filters on
// binary fields stay client-side, and the object's createable, updateable
// and searchable flags gate later operations.
func (c *Connector) Schema(ctx context.Context) (mapping.ObjectInfo, error) {
	const op = "schema"
	var info mapping.ObjectInfo
	err := c.gateway.Get(ctx, c.cfg.ObjectServicePath()+"describe",
		func(data []byte) error {
			parsed, err := mapping.ParseDescribe(data)
			if err != nil {
				return newError(ErrCodeOperationFailed, op, err)
			}
			info = parsed
			return nil
		},
		func(reqErr *gateway.RequestError) error {
			return remoteError(op, reqErr, "")
		})
	if err != nil {
		return mapping.ObjectInfo{}, err
	}

	c.columns.SetTypes(info.ColumnTypes())
	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()
	c.logger.Debug("schema loaded", "object", info.Name, "fields", len(info.Fields))
	return info, nil
}

// Test checks that the service path answers with the current token.
func (c *Connector) Test(ctx context.Context) error {
	return c.gateway.Get(ctx, c.cfg.ServicePath, nil, func(reqErr *gateway.RequestError) error {
		return remoteError("test", reqErr, "")
	})
}

// allow refuses op when loaded describe metadata says the object does
// not support it. Before Schema runs every operation is allowed.
func (c *Connector) allow(op string, supported func(mapping.ObjectInfo) bool) error {
	c.mu.RLock()
	info := c.info
	c.mu.RUnlock()
	if info == nil || supported(*info) {
		return nil
	}
	return &Error{Code: ErrCodeUnsupportedObject, Op: op, Message: info.Name + " does not support " + op}
}

func (c *Connector) patch(ctx context.Context, op, uid string, fields map[string]any) error {
	path := c.cfg.ObjectServicePath() + uid + "?_HttpMethod=PATCH"
	return c.gateway.Post(ctx, path, fields, nil, func(reqErr *gateway.RequestError) error {
		return remoteError(op, reqErr, "")
	})
}

func (c *Connector) setPassword(ctx context.Context, uid, password string) error {
	path := c.cfg.ObjectServicePath() + uid + "/password"
	body := map[string]string{"NewPassword": password}
	return c.gateway.Post(ctx, path, body, nil, func(reqErr *gateway.RequestError) error {
		var message, code string
		if len(reqErr.APIErrors) > 0 {
			message = reqErr.APIErrors[0].Message
			code = reqErr.APIErrors[0].ErrorCode
		}
		c.logger.Info("set password error", "uid", uid, "message", message, "error_code", code)
		if c.cfg.IgnorePasswordError {
			return nil
		}
		return &Error{Code: ErrCodeInvalidNewPassword, Op: "set password", Message: message, RemoteCode: code, Err: reqErr}
	})
}

// remoteError converts a failed call. A remote error code equal to
// existsCode becomes ALREADY_EXISTS.
func remoteError(op string, reqErr *gateway.RequestError, existsCode string) error {
	e := &Error{Code: ErrCodeOperationFailed, Op: op, Err: reqErr}
	if len(reqErr.APIErrors) > 0 {
		e.Message = reqErr.APIErrors[0].Message
		e.RemoteCode = reqErr.APIErrors[0].ErrorCode
	}
	if existsCode != "" && reqErr.HasAPIErrorCode(existsCode) {
		e.Code = ErrCodeAlreadyExists
		e.RemoteCode = existsCode
	}
	return e
}

// saveResult is the body of a create response. Errors may be plain
// strings or error objects.
type saveResult struct {
	ID      string            `json:"id"`
	Success bool              `json:"success"`
	Errors  []json.RawMessage `json:"errors"`
}

func (r saveResult) codes() []string {
	var out []string
	for _, raw := range r.Errors {
		var apiErr gateway.APIError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.ErrorCode != "" {
			out = append(out, apiErr.ErrorCode)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (r saveResult) hasError(code string) bool {
	for _, c := range r.codes() {
		if strings.Contains(c, code) {
			return true
		}
	}
	return false
}

func (r saveResult) firstCode() string {
	if codes := r.codes(); len(codes) > 0 {
		return codes[0]
	}
	return ""
}

type queryPage struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}
