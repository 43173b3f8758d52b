// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/golang-jwt/jwt/v5"

	log "github.com/inconshreveable/log15"
)

const (
	defaultLeeway = time.Minute
	bearerPrefix  = "Bearer "
)

type contextKey string

const callerContextKey contextKey = "anchor.caller"

var (
	errUnauthenticated   = errors.New("caller is not authenticated")
	errMissingSubject    = errors.New("token has no subject")
	errUnsupportedScheme = errors.New("unsupported authorization scheme")
)

// Authenticator verifies HS256 bearer tokens whose subject is the cb58
// encoded caller account.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
	log    log.Logger
}

func NewAuthenticator(secret []byte, issuer string, logger log.Logger) *Authenticator {
	return &Authenticator{
		secret: secret,
		issuer: issuer,
		leeway: defaultLeeway,
		log:    logger,
	}
}

// IssueToken returns a token authenticating [caller] for [ttl].
func IssueToken(secret []byte, issuer string, caller ids.ShortID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   caller.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware attaches the authenticated caller to the request context.
// Requests without an Authorization header pass through anonymously, and
// methods that need a caller reject them. Invalid tokens are rejected here.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := a.verify(header)
		if err != nil {
			a.log.Debug("rejected token", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) verify(header string) (ids.ShortID, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ids.ShortEmpty, errUnsupportedScheme
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	)
	if err != nil {
		return ids.ShortEmpty, err
	}
	if claims.Subject == "" {
		return ids.ShortEmpty, errMissingSubject
	}
	return ids.ShortFromString(claims.Subject)
}

// CallerFromContext returns the caller authenticated for [ctx], if any.
func CallerFromContext(ctx context.Context) (ids.ShortID, bool) {
	caller, ok := ctx.Value(callerContextKey).(ids.ShortID)
	return caller, ok
}

func requireCaller(r *http.Request) (ids.ShortID, error) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		return ids.ShortEmpty, errUnauthenticated
	}
	return caller, nil
}
