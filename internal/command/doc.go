// Package command defines the closed set of session commands and data payloads.
//
// Ownership boundary:
// - command kinds (wire discriminators) and their payload structs
// - client states and roles shared by host and client
// - wire vs client-local classification
//
// Every variant is constructed only through New, which is an exhaustive switch over Kind.
package command
