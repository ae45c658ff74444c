// Package config defines the streamgate-server configuration.
//
// Files carry koanf tags and are loaded by confloader. Default returns a
// runnable development configuration except for auth.jwt_secret, which
// must always be supplied.
package config
