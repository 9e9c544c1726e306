// Package e2e runs the service end to end against redis and postgres containers.
//
//	go test -tags integration_test ./internal/e2e/...
package e2e
