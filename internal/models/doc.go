// Package models defines the entities shared by the reelgate client layers.
//
// The package contains two categories of types:
//
//  1. Session state: [Credential] and [UserProfile], which the credential store persists durably.
//  2. Wire types: [Envelope] plus the movie catalogue payloads exchanged with the backend.
//
// Every backend response is wrapped in an [Envelope]; a Code of [CodeOK] marks success.
package models
