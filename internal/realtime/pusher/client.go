// Package pusher is a realtime.Transport speaking the Pusher channels
// protocol (version 7) over a websocket.
package pusher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
)

var (
	ErrNotConnected      = errors.New("pusher: not connected")
	ErrAlreadySubscribed = errors.New("pusher: channel already subscribed")
	ErrNoAuthorizer      = errors.New("pusher: channel needs authorization")
)

const writeWait = 10 * time.Second

// Authorizer signs private and presence subscriptions. *api.Client
// implements it.
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, socketID, channel string) (api.ChannelAuth, error)
}

type Options struct {
	Key     string
	Cluster string
	// Host replaces ws-{cluster}.pusher.com. A ws:// or wss:// prefix is kept.
	Host string
	Auth Authorizer
	// Limiter paces connection attempts.
	Limiter *rate.Limiter
	Dialer  *websocket.Dialer
}

type Client struct {
	opts Options
	url  string

	mu       sync.Mutex
	subs     map[string]*subscription
	conn     *websocket.Conn
	socketID string
	gen      int

	wmu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

type subscription struct {
	c       *Client
	channel string
	h       realtime.Handler
	sentOn  int
	lost    bool
}

func (s *subscription) Unsubscribe() { s.c.unsubscribe(s) }

func New(opts Options) *Client {
	if opts.Cluster == "" {
		opts.Cluster = "mt1"
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(2*time.Second), 3)
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{opts: opts, url: endpoint(opts), subs: make(map[string]*subscription)}
}

func endpoint(o Options) string {
	host := o.Host
	if host == "" {
		host = "ws-" + o.Cluster + ".pusher.com"
	}
	if !strings.HasPrefix(host, "ws://") && !strings.HasPrefix(host, "wss://") {
		host = "wss://" + host
	}
	q := url.Values{}
	q.Set("protocol", "7")
	q.Set("client", "lovey-go")
	q.Set("version", "1.0")
	q.Set("flash", "false")
	return strings.TrimRight(host, "/") + "/app/" + url.PathEscape(o.Key) + "?" + q.Encode()
}

// Start connects in the background and keeps reconnecting until ctx ends
// or Close is called.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Client) Close() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Connected reports whether a socket is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	for {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return
		}
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("url", c.url).Msg("realtime connection lost, reconnecting")
	}
}

// session runs one connection until it fails.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	if hello.Event != evEstablished {
		return fmt.Errorf("unexpected handshake %q: %s", hello.Event, hello.payload())
	}
	var est established
	if err := json.Unmarshal(hello.payload(), &est); err != nil {
		return fmt.Errorf("decode handshake: %w", err)
	}
	activity := time.Duration(est.ActivityTimeout) * time.Second
	if activity <= 0 {
		activity = 120 * time.Second
	}

	c.mu.Lock()
	c.conn = conn
	c.socketID = est.SocketID
	c.gen++
	gen := c.gen
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	log.Info().Str("socketId", est.SocketID).Msg("realtime connected")

	stop := make(chan struct{})
	defer func() {
		close(stop)
		c.dropped(conn)
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	go c.keepAlive(conn, activity, stop)

	for _, s := range subs {
		if err := c.sendSubscribe(ctx, s, est.SocketID, gen); err != nil {
			log.Warn().Err(err).Str("channel", s.channel).Msg("resubscribe failed")
			s.h(realtime.Frame{Event: realtime.FrameSubscribeErr, Data: message(err.Error())})
		}
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(activity + 30*time.Second))
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(f)
	}
}

// keepAlive pings after each quiet activity period.
func (c *Client) keepAlive(conn *websocket.Conn, every time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := c.writeTo(conn, frame{Event: evPing, Data: json.RawMessage(`{}`)}); err != nil {
				return
			}
		}
	}
}

// dropped forgets conn and tells every subscriber presence is now stale.
func (c *Client) dropped(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.socketID = ""
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		s.sentOn = 0
		s.lost = true
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		s.h(realtime.Frame{Event: realtime.FrameLost, Data: message("connection lost")})
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Event {
	case evPing:
		if err := c.write(frame{Event: evPong, Data: json.RawMessage(`{}`)}); err != nil {
			log.Debug().Err(err).Msg("pong failed")
		}
		return
	case evPong:
		return
	case evError:
		log.Warn().RawJSON("data", f.payload()).Msg("realtime server error")
		return
	}

	c.mu.Lock()
	s := c.subs[f.Channel]
	var reconnected bool
	if s != nil && f.Event == evSubscribed {
		reconnected = s.lost
		s.lost = false
	}
	c.mu.Unlock()
	if s == nil {
		log.Debug().Str("channel", f.Channel).Str("event", f.Event).Msg("event for unknown channel")
		return
	}

	var (
		out realtime.Frame
		err error
	)
	switch f.Event {
	case evSubscribed:
		if reconnected {
			s.h(realtime.Frame{Event: realtime.FrameReconnected})
		}
		out, err = hereFrame(f.payload())
	case evSubscribeErr:
		out = realtime.Frame{Event: realtime.FrameSubscribeErr, Data: message(string(f.payload()))}
	case evMemberAdded:
		out, err = memberFrame(realtime.FrameJoining, f.payload())
	case evMemberRemoved:
		out, err = memberFrame(realtime.FrameLeaving, f.payload())
	default:
		out = realtime.Frame{Event: f.Event, Data: f.payload()}
	}
	if err != nil {
		log.Debug().Err(err).Str("channel", f.Channel).Str("event", f.Event).Msg("bad presence frame")
		return
	}
	s.h(out)
}

func (c *Client) Subscribe(ctx context.Context, channel string, h realtime.Handler) (realtime.Subscription, error) {
	c.mu.Lock()
	if _, ok := c.subs[channel]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, channel)
	}
	s := &subscription{c: c, channel: channel, h: h}
	c.subs[channel] = s
	conn, sid, gen := c.conn, c.socketID, c.gen
	c.mu.Unlock()

	if conn != nil {
		if err := c.sendSubscribe(ctx, s, sid, gen); err != nil {
			c.mu.Lock()
			delete(c.subs, channel)
			c.mu.Unlock()
			return nil, err
		}
	}
	return s, nil
}

func needsAuth(channel string) bool {
	return strings.HasPrefix(channel, "private-") || strings.HasPrefix(channel, "presence-")
}

// sendSubscribe subscribes s on connection gen unless that already happened.
func (c *Client) sendSubscribe(ctx context.Context, s *subscription, socketID string, gen int) error {
	c.mu.Lock()
	if s.sentOn == gen || c.subs[s.channel] != s {
		c.mu.Unlock()
		return nil
	}
	s.sentOn = gen
	c.mu.Unlock()

	data := subscribeData{Channel: s.channel}
	if needsAuth(s.channel) {
		if c.opts.Auth == nil {
			return fmt.Errorf("%w: %s", ErrNoAuthorizer, s.channel)
		}
		a, err := c.opts.Auth.AuthorizeChannel(ctx, socketID, s.channel)
		if err != nil {
			c.mu.Lock()
			s.sentOn = 0
			c.mu.Unlock()
			return fmt.Errorf("authorize %s: %w", s.channel, err)
		}
		data.Auth = a.Auth
		data.ChannelData = a.ChannelData
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.write(frame{Event: evSubscribe, Data: b})
}

func (c *Client) unsubscribe(s *subscription) {
	c.mu.Lock()
	if c.subs[s.channel] != s {
		c.mu.Unlock()
		return
	}
	delete(c.subs, s.channel)
	connected := c.conn != nil
	c.mu.Unlock()
	if !connected {
		return
	}
	b, _ := json.Marshal(subscribeData{Channel: s.channel})
	if err := c.write(frame{Event: evUnsubscribe, Data: b}); err != nil {
		log.Debug().Err(err).Str("channel", s.channel).Msg("unsubscribe failed")
	}
}

func (c *Client) write(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.writeTo(conn, f)
}

func (c *Client) writeTo(conn *websocket.Conn, f frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}
