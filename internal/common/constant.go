// Package common contains shared constants and sentinel errors used across
// todosync components.
package common

// AccessTokenHeaderName is the gRPC metadata key (and WebSocket query
// parameter) used to carry the device access token.
const AccessTokenHeaderName = "access_token"

// DeviceIDHeaderName carries the sender's device id so the server can tag
// change events with their origin.
const DeviceIDHeaderName = "device_id"

// AnonymousUserID owns every row when the server runs without a secret key.
const AnonymousUserID = "local"
