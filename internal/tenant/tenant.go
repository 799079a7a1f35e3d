// Package tenant derives the spa/business a request belongs to from its host.
package tenant

import (
	"context"
	"strings"
)

// QueryParam is the query parameter consulted on loopback hosts.
const QueryParam = "subdomain"

// Resolve returns the tenant identifier encoded in host.
//
// Loopback hosts (localhost, 127.0.0.1) take the identifier verbatim from
// override. Other hosts use their first label, lower-cased, when the host has
// more than two labels and that label is not "www". The boolean is false when
// no tenant applies.
func Resolve(host, override string) (string, bool) {
	hostname := stripPort(host)

	if hostname == "localhost" || hostname == "127.0.0.1" {
		if override == "" {
			return "", false
		}
		return override, true
	}

	labels := strings.Split(hostname, ".")
	if len(labels) <= 2 {
		return "", false
	}

	id := strings.ToLower(labels[0])
	if id == "www" {
		return "", false
	}
	return id, true
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the tenant identifier.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the tenant identifier stored by NewContext.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
