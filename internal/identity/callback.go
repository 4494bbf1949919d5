package identity

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"
	"github.com/google/uuid"
)

const callbackShutdownTimeout = 5 * time.Second

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>digest</title></head>
<body style="font-family:sans-serif;margin:4em auto;max-width:32em">
<h2>{{.Title}}</h2><p>{{.Message}}</p>
</body></html>
`))

type callbackResult struct {
	code string
	err  error
}

// callbackServer receives the OAuth redirect on a loopback address. Only the
// first request carrying the expected nonce is delivered.
type callbackServer struct {
	nonce    string
	listener net.Listener
	srv      *http.Server
	results  chan callbackResult
	once     sync.Once
}

func startCallbackServer(port int) (*callbackServer, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}

	cs := &callbackServer{
		nonce:    uuid.NewString(),
		listener: ln,
		results:  make(chan callbackResult, 1),
	}

	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.Throttle(10))
	router.Use(rest.SizeLimit(64 * 1024))
	router.HandleFunc("GET /auth/callback/{nonce}", cs.handleCallback)

	cs.srv = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := cs.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[WARN] oauth callback server: %v", err)
		}
	}()
	log.Printf("[DEBUG] oauth callback listening on %s", ln.Addr())
	return cs, nil
}

// RedirectURL is the address the identity provider sends the browser back to.
func (c *callbackServer) RedirectURL() string {
	return fmt.Sprintf("http://%s/auth/callback/%s", c.listener.Addr().String(), c.nonce)
}

func (c *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("nonce") != c.nonce {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	var res callbackResult
	switch {
	case q.Get("error") != "":
		reason := q.Get("error_description")
		if reason == "" {
			reason = q.Get("error")
		}
		res.err = fmt.Errorf("sign-in rejected: %s", reason)
	case q.Get("code") == "":
		res.err = errors.New("sign-in callback carried no authorization code")
	default:
		res.code = q.Get("code")
	}
	c.once.Do(func() { c.results <- res })

	page := struct{ Title, Message string }{"Signed in", "You can close this tab and return to the terminal."}
	status := http.StatusOK
	if res.err != nil {
		page = struct{ Title, Message string }{"Sign-in failed", res.err.Error()}
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, page)
}

// Wait blocks until the callback arrives or ctx ends.
func (c *callbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-c.results:
		return res.code, res.err
	}
}

func (c *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), callbackShutdownTimeout)
	defer cancel()
	if err := c.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown oauth callback server: %w", err)
	}
	return nil
}
