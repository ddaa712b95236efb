// Package remote implements the sync client for the cloud document store.
//
// Authentication is anonymous-first: if no identity exists yet, one is
// created transparently before the first write. Every operation is a
// successful no-op while the client is not initialized, and callers that
// already persisted locally are expected to log-and-swallow any error the
// client does return.
package remote

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/infinitumhq/infinitum/internal/codec"
	"github.com/infinitumhq/infinitum/internal/common"
	"github.com/infinitumhq/infinitum/internal/logging"
	"github.com/infinitumhq/infinitum/internal/models"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"

	// tokenExpirySlack re-mints the identity token slightly before its
	// exp claim so in-flight requests never carry an expired one.
	tokenExpirySlack = time.Minute

	eventBuffer = 16
)

// Config holds the settings needed to reach the document store.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Client talks to the cloud document store and surfaces out-of-band changes
// as typed events.
type Client struct {
	fs    *firestore.Client
	authc *auth.Client
	log   logging.Logger

	initialized bool
	online      atomic.Bool

	mu            sync.Mutex
	uid           string
	token         string
	subscriptions map[string]context.CancelFunc

	events chan Event
}

// NewClient initializes the document store client. An empty project id
// yields a disabled client whose operations are successful no-ops.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	c := &Client{
		log:    log,
		events: make(chan Event, eventBuffer),
	}

	if cfg.ProjectID == "" {
		log.Warn(ctx, "remote sync disabled: no project id configured")
		return c, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	authc, err := app.Auth(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("auth client: %w", err)
	}

	c.fs = fs
	c.authc = authc
	c.initialized = true
	c.online.Store(true)
	return c, nil
}

// NewDisabled returns a client whose every operation is a successful no-op.
func NewDisabled(log logging.Logger) *Client {
	return &Client{log: log, events: make(chan Event, eventBuffer)}
}

// Online reports whether the last backend interaction succeeded.
func (c *Client) Online() bool {
	return c.initialized && c.online.Load()
}

// Status summarizes the observable client state.
type Status struct {
	Initialized bool
	Online      bool
	SignedIn    bool
}

// Status returns the current connection and identity state.
func (c *Client) Status() Status {
	c.mu.Lock()
	signedIn := c.uid != ""
	c.mu.Unlock()
	return Status{
		Initialized: c.initialized,
		Online:      c.Online(),
		SignedIn:    signedIn,
	}
}

// Events delivers push-driven entity updates from active subscriptions.
func (c *Client) Events() <-chan Event {
	return c.events
}

// SignInAnonymously ensures an authenticated identity exists, creating an
// anonymous user and minting a fresh token when none is held or the held
// token has expired.
func (c *Client) SignInAnonymously(ctx context.Context) error {
	if !c.initialized {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !tokenExpired(c.token) {
		return nil
	}

	if c.uid == "" {
		u, err := c.authc.CreateUser(ctx, &auth.UserToCreate{})
		if err != nil {
			return c.mapError(err)
		}
		c.uid = u.UID
	}

	token, err := c.authc.CustomToken(ctx, c.uid)
	if err != nil {
		return c.mapError(err)
	}
	c.token = token
	c.online.Store(true)
	return nil
}

// SaveUser writes the user document keyed by user id.
func (c *Client) SaveUser(ctx context.Context, u *models.User) error {
	if !c.initialized {
		return nil
	}
	if err := c.SignInAnonymously(ctx); err != nil {
		return err
	}

	_, err := c.fs.Collection(usersCollection).Doc(u.ID).Set(ctx, codec.UserToDocument(u))
	return c.noteResult(err)
}

// FetchUser reads the user document by id. Absence is a nil result, not an
// error.
func (c *Client) FetchUser(ctx context.Context, id string) (*models.User, error) {
	if !c.initialized {
		return nil, nil
	}
	if err := c.SignInAnonymously(ctx); err != nil {
		return nil, err
	}

	snap, err := c.fs.Collection(usersCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		c.online.Store(true)
		return nil, nil
	}
	if err != nil {
		return nil, c.noteResult(err)
	}
	c.online.Store(true)

	u, err := codec.UserFromDocument(snap.Data())
	if err != nil {
		return nil, fmt.Errorf("decode remote user: %w", err)
	}
	return u, nil
}

// DeleteUser removes the user document by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if !c.initialized {
		return nil
	}
	if err := c.SignInAnonymously(ctx); err != nil {
		return err
	}

	_, err := c.fs.Collection(usersCollection).Doc(id).Delete(ctx)
	return c.noteResult(err)
}

// SaveSession writes the session document keyed by session id.
func (c *Client) SaveSession(ctx context.Context, s *models.Session) error {
	if !c.initialized {
		return nil
	}
	if err := c.SignInAnonymously(ctx); err != nil {
		return err
	}

	_, err := c.fs.Collection(sessionsCollection).Doc(s.ID).Set(ctx, codec.SessionToDocument(s))
	return c.noteResult(err)
}

// SubscribeToSession starts a snapshot listener for the session document and
// forwards remote changes as typed events until ctx is cancelled or the
// client is closed.
func (c *Client) SubscribeToSession(ctx context.Context, sessionID string) error {
	return c.subscribe(ctx, sessionsCollection, sessionID, func(data map[string]any) (Event, error) {
		s, err := codec.SessionFromDocument(data)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventSessionUpdated, Session: s}, nil
	})
}

// SubscribeToUser starts a snapshot listener for the user document.
func (c *Client) SubscribeToUser(ctx context.Context, userID string) error {
	return c.subscribe(ctx, usersCollection, userID, func(data map[string]any) (Event, error) {
		u, err := codec.UserFromDocument(data)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventUserUpdated, User: u}, nil
	})
}

// subscribe starts at most one listener per document: a second subscription
// to the same (collection, id) is a successful no-op while the first is
// alive. The slot frees when the listener stops, so a later subscribe can
// re-establish it.
func (c *Client) subscribe(ctx context.Context, collection, id string, decode func(map[string]any) (Event, error)) error {
	if !c.initialized {
		return nil
	}
	if err := c.SignInAnonymously(ctx); err != nil {
		return err
	}

	key := subscriptionKey(collection, id)
	ctx, cancel := context.WithCancel(ctx)
	if !c.addSubscription(key, cancel) {
		cancel()
		return nil
	}

	go func() {
		defer c.dropSubscription(key)

		it := c.fs.Collection(collection).Doc(id).Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					c.online.Store(false)
					c.log.Warn(ctx, "snapshot listener stopped", "collection", collection, "id", id, "error", err)
				}
				return
			}
			c.online.Store(true)
			if !snap.Exists() {
				continue
			}

			ev, err := decode(snap.Data())
			if err != nil {
				c.log.Warn(ctx, "discarding undecodable remote update", "collection", collection, "id", id, "error", err)
				continue
			}

			select {
			case c.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Close cancels active subscriptions and releases the backend connection.
func (c *Client) Close() error {
	c.mu.Lock()
	subs := c.subscriptions
	c.subscriptions = nil
	c.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	if c.fs != nil {
		return c.fs.Close()
	}
	return nil
}

func subscriptionKey(collection, id string) string {
	return collection + "/" + id
}

// addSubscription claims the listener slot for key. It reports false when a
// listener already holds it.
func (c *Client) addSubscription(key string, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptions[key]; ok {
		return false
	}
	if c.subscriptions == nil {
		c.subscriptions = make(map[string]context.CancelFunc)
	}
	c.subscriptions[key] = cancel
	return true
}

func (c *Client) dropSubscription(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, key)
}

func (c *Client) noteResult(err error) error {
	if err == nil {
		c.online.Store(true)
		return nil
	}
	return c.mapError(err)
}

func (c *Client) mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return common.ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		c.online.Store(false)
		return common.ErrUnavailable
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrUnauthorized
	default:
		return fmt.Errorf("remote store error: %w", err)
	}
}

// tokenExpired inspects the exp claim without verifying the signature; the
// backend is the verifier, this is only a local freshness check.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !time.Now().Before(exp.Time.Add(-tokenExpirySlack))
}
