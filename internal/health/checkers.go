package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/taleyport/internal/backend"
)

// StoryLister is the part of the backend client the backend check needs.
type StoryLister interface {
	BaseURL() string
	ListStories(ctx context.Context) ([]backend.Story, error)
}

// BackendChecker verifies the backend answers the story list.
type BackendChecker struct {
	client StoryLister
}

// NewBackendChecker creates a backend checker.
func NewBackendChecker(client StoryLister) *BackendChecker {
	return &BackendChecker{client: client}
}

// Name implements Checker.
func (c *BackendChecker) Name() string { return "backend" }

// Check lists the stories. An empty list is degraded since no video can be
// generated from it.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	url := c.client.BaseURL()
	start := time.Now()
	stories, err := c.client.ListStories(ctx)
	latency := time.Since(start)
	if err != nil {
		return Unhealthy(firstLine(err)).
			WithDetail("url", url).
			WithLatency(latency)
	}
	if len(stories) == 0 {
		return Degraded(fmt.Sprintf("%s returned no stories", url)).
			WithDetail("url", url).
			WithLatency(latency)
	}
	return Healthy(fmt.Sprintf("%s (%d stories)", url, len(stories))).
		WithDetail("url", url).
		WithDetail("stories", len(stories)).
		WithLatency(latency)
}

// UserProber is the part of the backend client the session check needs.
type UserProber interface {
	CurrentUser(ctx context.Context) (*backend.UserResponse, error)
}

// SessionChecker verifies a configured session cookie still belongs to a
// logged in user.
type SessionChecker struct {
	client UserProber
}

// NewSessionChecker creates a session cookie checker.
func NewSessionChecker(client UserProber) *SessionChecker {
	return &SessionChecker{client: client}
}

// Name implements Checker.
func (c *SessionChecker) Name() string { return "session-cookie" }

// Check calls GET /user. Failures are degraded because most endpoints work
// without a session.
func (c *SessionChecker) Check(ctx context.Context) *Result {
	user, err := c.client.CurrentUser(ctx)
	switch {
	case err != nil:
		return Degraded(firstLine(err))
	case !user.LoggedIn || user.User == nil:
		return Degraded("cookie is set but the backend reports no logged in user")
	default:
		return Healthy(fmt.Sprintf("logged in as %s", user.User.Email)).
			WithDetail("name", user.User.Name)
	}
}

// ContractChecker verifies the embedded OpenAPI document loads.
type ContractChecker struct{}

// NewContractChecker creates a contract checker.
func NewContractChecker() *ContractChecker {
	return &ContractChecker{}
}

// Name implements Checker.
func (c *ContractChecker) Name() string { return "backend-contract" }

// Check implements Checker.
func (c *ContractChecker) Check(ctx context.Context) *Result {
	contract, err := backend.DefaultContract()
	if err != nil {
		return Unhealthy(err.Error())
	}
	endpoints := contract.Endpoints()
	return Healthy(fmt.Sprintf("%d endpoints", len(endpoints))).
		WithDetail("endpoints", endpoints)
}

// DirectoryChecker verifies a directory exists, creating it if needed, and
// is writable.
type DirectoryChecker struct {
	name string
	dir  string
}

// NewDirectoryChecker creates a directory checker reported under name.
func NewDirectoryChecker(name, dir string) *DirectoryChecker {
	return &DirectoryChecker{name: name, dir: dir}
}

// Name implements Checker.
func (c *DirectoryChecker) Name() string { return c.name }

// Check implements Checker.
func (c *DirectoryChecker) Check(ctx context.Context) *Result {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return Unhealthy(fmt.Sprintf("cannot create %s: %v", c.dir, err)).
			WithDetail("path", c.dir)
	}
	probe, err := os.CreateTemp(c.dir, ".doctor-*")
	if err != nil {
		return Unhealthy(fmt.Sprintf("%s is not writable: %v", c.dir, err)).
			WithDetail("path", c.dir)
	}
	probe.Close()
	os.Remove(probe.Name())

	return Healthy(c.dir).WithDetail("path", c.dir)
}

// FileChecker reports whether an optional file exists. A missing file is
// degraded and carries hint as the message.
type FileChecker struct {
	name string
	path string
	hint string
}

// NewFileChecker creates a file checker reported under name.
func NewFileChecker(name, path, hint string) *FileChecker {
	return &FileChecker{name: name, path: path, hint: hint}
}

// Name implements Checker.
func (c *FileChecker) Name() string { return c.name }

// Check implements Checker.
func (c *FileChecker) Check(ctx context.Context) *Result {
	info, err := os.Stat(c.path)
	switch {
	case os.IsNotExist(err):
		return Degraded(c.hint).WithDetail("path", c.path)
	case err != nil:
		return Unhealthy(err.Error()).WithDetail("path", c.path)
	case info.IsDir():
		return Unhealthy(fmt.Sprintf("%s is a directory", c.path)).WithDetail("path", c.path)
	}
	return Healthy(c.path).WithDetail("path", c.path)
}

func firstLine(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
