// Package security builds the read-only posture report exposed by
// Engine.SecurityReport. It takes plain values so it does not depend on the
// root package.
package security
