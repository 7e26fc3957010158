package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

// DefaultServerURL is used until `taskflow server set` is run
const DefaultServerURL = "http://localhost:4000"

// ErrOffline is returned by writes while the client is offline
var ErrOffline = errors.New("offline: changes need a server connection")

// ErrNotLoggedIn is returned by calls that need a session
var ErrNotLoggedIn = errors.New("not logged in, run 'taskflow auth login' first")

// Config is the client state kept in client.json
type Config struct {
	ServerURL  string `json:"server_url"`
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Workspace  string `json:"workspace,omitempty"`
	LogLevel   string `json:"log_level,omitempty"`
	LogFile    string `json:"log_file,omitempty"`
	LogConsole bool   `json:"log_console,omitempty"`
}

// APIError is an error response from the server
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s (%d): %v", e.Message, e.Status, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client talks to the TaskFlow API
type Client struct {
	config     *Config
	dir        string
	httpClient *http.Client
	cache      *Cache
	offline    bool
}

// DefaultDir returns ~/.taskflow
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskflow"), nil
}

// New loads the client state from dir. A missing config starts a fresh one.
func New(dir string) (*Client, error) {
	c := &Client{
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      NewCache(filepath.Join(dir, "cache.json")),
	}
	if err := c.loadConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDefault opens the client in DefaultDir
func NewDefault() (*Client, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return New(dir)
}

func (c *Client) configPath() string {
	return filepath.Join(c.dir, "client.json")
}

func (c *Client) loadConfig() error {
	c.config = &Config{ServerURL: DefaultServerURL}
	data, err := os.ReadFile(c.configPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read client config: %w", err)
	}
	if err := json.Unmarshal(data, c.config); err != nil {
		return fmt.Errorf("failed to parse client config: %w", err)
	}
	if c.config.ServerURL == "" {
		c.config.ServerURL = DefaultServerURL
	}
	return nil
}

// Save writes the client config
func (c *Client) Save() error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath(), data, 0600)
}

// Config returns the loaded configuration
func (c *Client) Config() *Config {
	return c.config
}

// SetOffline switches reads to the local cache and blocks writes
func (c *Client) SetOffline(offline bool) {
	c.offline = offline
}

// Offline reports whether the client is in offline mode
func (c *Client) Offline() bool {
	return c.offline
}

// SetServer sets the API base URL
func (c *Client) SetServer(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", raw)
	}
	c.config.ServerURL = strings.TrimRight(raw, "/")
	return c.Save()
}

// SetWorkspace sets the default workspace for scoped commands
func (c *Client) SetWorkspace(id string) error {
	c.config.Workspace = id
	return c.Save()
}

// IsLoggedIn returns true if a token is stored
func (c *Client) IsLoggedIn() bool {
	return c.config.Token != ""
}

func (c *Client) endpoint(path string) string {
	return c.config.ServerURL + "/api" + path
}

// do performs a request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("API call",
		logger.F("method", method),
		logger.F("path", path),
		logger.F("status", resp.StatusCode),
		logger.F("duration", time.Since(start).String()))

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var env struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Error == "" {
		env.Error = strings.TrimSpace(string(data))
		if env.Error == "" {
			env.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: env.Error, Details: env.Details}
}

// write runs a mutating call
func (c *Client) write(ctx context.Context, method, path string, in, out any) error {
	if c.offline {
		return ErrOffline
	}
	return c.do(ctx, method, path, in, out)
}

// read runs a GET, serving it from the cache while offline and refreshing the
// cache on success.
func (c *Client) read(ctx context.Context, path string, out any) error {
	if c.offline {
		return c.cache.Get(path, out)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return err
	}
	if err := c.cache.Put(path, out); err != nil {
		logger.Warn("Failed to update cache", logger.F("path", path), logger.Err(err))
	}
	return nil
}

func (c *Client) requireLogin() error {
	if !c.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

func (c *Client) storeSession(sess service.Session) error {
	if c.config.UserID != "" && c.config.UserID != sess.User.ID {
		c.config.Workspace = ""
		if err := c.cache.Clear(); err != nil {
			logger.Warn("Failed to clear cache", logger.Err(err))
		}
	}
	c.config.Token = sess.Token
	c.config.UserID = sess.User.ID
	c.config.Email = sess.User.Email
	return c.Save()
}

// Signup creates an account and stores its session
func (c *Client) Signup(ctx context.Context, in service.SignupInput) (model.User, error) {
	var sess service.Session
	if err := c.write(ctx, http.MethodPost, "/auth/signup", in, &sess); err != nil {
		return model.User{}, err
	}
	return sess.User, c.storeSession(sess)
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, in service.LoginInput) (model.User, error) {
	var sess service.Session
	if err := c.write(ctx, http.MethodPost, "/auth/login", in, &sess); err != nil {
		return model.User{}, err
	}
	return sess.User, c.storeSession(sess)
}

// Logout forgets the session and the cached responses
func (c *Client) Logout() error {
	c.config.Token = ""
	c.config.UserID = ""
	c.config.Email = ""
	c.config.Workspace = ""
	if err := c.cache.Clear(); err != nil {
		return err
	}
	return c.Save()
}

// Me returns the logged in user
func (c *Client) Me(ctx context.Context) (model.User, error) {
	if err := c.requireLogin(); err != nil {
		return model.User{}, err
	}
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.read(ctx, "/auth/me", &resp); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// VerifyEmail submits a token from a verification email
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	if c.offline {
		return ErrOffline
	}
	return c.do(ctx, http.MethodGet, "/auth/verify?token="+url.QueryEscape(token), nil, nil)
}

// ResendVerification asks for a new verification email
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.write(ctx, http.MethodPost, "/auth/resend-verification", map[string]string{"email": email}, nil)
}

// Workspaces lists the caller's workspaces
func (c *Client) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.Workspace
	if err := c.read(ctx, "/workspaces", &out); err != nil {
		return out, err
	}
	return out, nil
}

// CreateWorkspace creates a workspace owned by the caller
func (c *Client) CreateWorkspace(ctx context.Context, in service.CreateWorkspaceInput) (model.Workspace, error) {
	if err := c.requireLogin(); err != nil {
		return model.Workspace{}, err
	}
	var out model.Workspace
	if err := c.write(ctx, http.MethodPost, "/workspaces", in, &out); err != nil {
		return out, err
	}
	return out, nil
}

// AddMember adds a user to a workspace
func (c *Client) AddMember(ctx context.Context, workspaceID string, in service.AddMemberInput) (model.Workspace, error) {
	if err := c.requireLogin(); err != nil {
		return model.Workspace{}, err
	}
	var out model.Workspace
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/members"
	if err := c.write(ctx, http.MethodPost, path, in, &out); err != nil {
		return out, err
	}
	return out, nil
}

func scoped(path, workspaceID string) string {
	if workspaceID == "" {
		return path
	}
	return path + "?workspaceId=" + url.QueryEscape(workspaceID)
}

// Categories lists categories, optionally for one workspace
func (c *Client) Categories(ctx context.Context, workspaceID string) ([]model.Category, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.Category
	if err := c.read(ctx, scoped("/categories", workspaceID), &out); err != nil {
		return out, err
	}
	return out, nil
}

// CreateCategory adds a category to a workspace
func (c *Client) CreateCategory(ctx context.Context, in service.CreateCategoryInput) (model.Category, error) {
	if err := c.requireLogin(); err != nil {
		return model.Category{}, err
	}
	var out model.Category
	if err := c.write(ctx, http.MethodPost, "/categories", in, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Tasks lists tasks, optionally for one workspace
func (c *Client) Tasks(ctx context.Context, workspaceID string) ([]model.Task, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.Task
	if err := c.read(ctx, scoped("/tasks", workspaceID), &out); err != nil {
		return out, err
	}
	return out, nil
}

// Task fetches a single task
func (c *Client) Task(ctx context.Context, id string) (model.Task, error) {
	if err := c.requireLogin(); err != nil {
		return model.Task{}, err
	}
	var out model.Task
	if err := c.read(ctx, "/tasks/"+url.PathEscape(id), &out); err != nil {
		return out, err
	}
	return out, nil
}

// CreateTask creates a task
func (c *Client) CreateTask(ctx context.Context, in service.CreateTaskInput) (model.Task, error) {
	if err := c.requireLogin(); err != nil {
		return model.Task{}, err
	}
	var out model.Task
	if err := c.write(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return out, err
	}
	return out, nil
}

// UpdateTask applies a partial update
func (c *Client) UpdateTask(ctx context.Context, id string, in service.UpdateTaskInput) (model.Task, error) {
	if err := c.requireLogin(); err != nil {
		return model.Task{}, err
	}
	var out model.Task
	if err := c.write(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), in, &out); err != nil {
		return out, err
	}
	return out, nil
}

// MoveTask sets a task's status
func (c *Client) MoveTask(ctx context.Context, id string, status model.Status) (model.Task, error) {
	return c.UpdateTask(ctx, id, service.UpdateTaskInput{Status: model.Some(status)})
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.write(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// Activities returns the latest activity, optionally for one workspace
func (c *Client) Activities(ctx context.Context, workspaceID string) ([]model.Activity, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.Activity
	if err := c.read(ctx, scoped("/activities", workspaceID), &out); err != nil {
		return out, err
	}
	return out, nil
}

// Users lists every account. Global admins only.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var out []model.User
	if err := c.read(ctx, "/admin/users", &out); err != nil {
		return out, err
	}
	return out, nil
}

// ResolveTask finds a task by full id or unique id prefix among the
// visible tasks.
func (c *Client) ResolveTask(ctx context.Context, ref string) (model.Task, error) {
	tasks, err := c.Tasks(ctx, "")
	if err != nil {
		return model.Task{}, err
	}
	var match []model.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 0:
		return model.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return match[0], nil
	default:
		return model.Task{}, fmt.Errorf("%q matches %d tasks, use a longer prefix", ref, len(match))
	}
}

// TasksFetchedAt reports when the task list for workspaceID was last cached
func (c *Client) TasksFetchedAt(workspaceID string) (time.Time, bool) {
	return c.cache.FetchedAt(scoped("/tasks", workspaceID))
}

// ClearCache drops every cached response
func (c *Client) ClearCache() error {
	return c.cache.Clear()
}
