// Package configfile loads goAccess server configuration from a YAML file,
// optional .env files and GOACCESS_* environment variables, in that order of
// increasing precedence.
//
// The YAML document also seeds the RBAC catalogue: permissions, roles and
// direct user assignments. Durations are Go duration strings ("15m", "24h").
package configfile
