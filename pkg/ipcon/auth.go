// SPDX-License-Identifier: Apache-2.0

package ipcon

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"fmt"
)

// The gateway daemon itself answers on a fixed UID with two functions used
// for the authentication handshake.
const (
	daemonUID = "2"

	functionGetAuthenticationNonce = 1
	functionAuthenticate           = 2
)

// Authenticate runs the nonce handshake against the gateway daemon: it
// fetches the server nonce, draws a client nonce, and proves knowledge of
// the shared secret with an HMAC-SHA1 digest over both. Must be called
// before any other traffic when the daemon requires authentication.
func (c *Connection) Authenticate(secret string) error {
	daemon, err := NewDevice(daemonUID, c)
	if err != nil {
		return err
	}
	defer c.ReleaseDevice(daemon)

	daemon.DeclareFunction(functionGetAuthenticationNonce, ResponseExpectedAlwaysTrue)
	daemon.DeclareFunction(functionAuthenticate, ResponseExpectedTrue)

	values, err := daemon.Call(functionGetAuthenticationNonce, nil, "", 12, "4B")
	if err != nil {
		return fmt.Errorf("ipcon: get authentication nonce: %w", err)
	}
	serverNonce := values[0].([]uint8)

	clientNonce := make([]byte, 4)
	if _, err := rand.Read(clientNonce); err != nil {
		return fmt.Errorf("ipcon: generate client nonce: %w", err)
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(serverNonce)
	mac.Write(clientNonce)
	digest := mac.Sum(nil)

	_, err = daemon.Call(functionAuthenticate,
		[]interface{}{[]uint8(clientNonce), []uint8(digest)}, "4B 20B", 8, "")
	if err != nil {
		return fmt.Errorf("ipcon: authenticate: %w", err)
	}
	return nil
}
